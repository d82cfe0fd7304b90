package controller

import (
	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMonitoringController interface {
	RegisterRoutes(r fiber.Router, guard fiber.Handler)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
	GetModeSwitches(ctx *fiber.Ctx) error
}

type monitoringController struct {
	service service.IMonitoringService
}

func NewMonitoringController(service service.IMonitoringService) IMonitoringController {
	return &monitoringController{service: service}
}

func (c *monitoringController) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	h := r.Group("/v1/monitoring")
	h.Use(guard)
	h.Get("/logs", c.GetLogs)
	h.Get("/logs/:id", c.GetLogDetail)
	h.Get("/mode-switches", c.GetModeSwitches)
}

func (c *monitoringController) GetLogs(ctx *fiber.Ctx) error {
	var req dto.GetLogsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	logs, err := c.service.GetLogs(ctx.UserContext(), &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *monitoringController) GetLogDetail(ctx *fiber.Ctx) error {
	logId := ctx.Params("id") // md5 of the raw line, not a UUID

	l, err := c.service.GetLogById(ctx.UserContext(), logId)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Log not found"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", l))
}

func (c *monitoringController) GetModeSwitches(ctx *fiber.Ctx) error {
	var req dto.GetModeSwitchesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.GetModeSwitches(ctx.UserContext(), &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Mode switches", res))
}
