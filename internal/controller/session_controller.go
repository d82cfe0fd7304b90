package controller

import (
	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/internal/service"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Interact(ctx *fiber.Ctx) error
	GetContext(ctx *fiber.Ctx) error
	GetModes(ctx *fiber.Ctx) error
}

type sessionController struct {
	orchestrator *orchestrator.Orchestrator
	contexts     service.ILearningContextService
}

func NewSessionController(orch *orchestrator.Orchestrator, contexts service.ILearningContextService) ISessionController {
	return &sessionController{
		orchestrator: orch,
		contexts:     contexts,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1")
	h.Post("/session", c.Create)
	h.Post("/session/:session_id/interact", c.Interact)
	h.Get("/session/:session_id/context", c.GetContext)
	h.Get("/modes", c.GetModes)
}

// Create hands out a session id. The session itself starts on its first interaction.
func (c *sessionController) Create(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", dto.CreateSessionResponse{
		SessionId:   uuid.NewString(),
		DefaultMode: string(c.orchestrator.DefaultMode()),
	}))
}

func (c *sessionController) Interact(ctx *fiber.Ctx) error {
	var req dto.InteractRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	resp := c.orchestrator.HandleRequest(ctx.UserContext(), mode.Request{
		SessionID:    ctx.Params("session_id"),
		UserInput:    req.UserInput,
		ModeOverride: req.CurrentMode,
		RequestType:  req.RequestType,
		Payload:      req.Payload,
		Timestamp:    req.Timestamp,
	})

	return ctx.JSON(resp)
}

func (c *sessionController) GetContext(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("session_id")

	lc, err := c.contexts.GetContext(ctx.UserContext(), sessionId)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	res := dto.SessionContextResponse{
		SessionId:       sessionId,
		ActiveMode:      lc.ActiveMode,
		LearningContext: lc,
	}
	if state, ok := c.orchestrator.SessionState(sessionId); ok {
		res.ActiveMode = string(state.ActiveMode)
	}

	return ctx.JSON(serverutils.SuccessResponse("Session context", res))
}

func (c *sessionController) GetModes(ctx *fiber.Ctx) error {
	names := c.orchestrator.Modes()
	modes := make([]string, len(names))
	for i, n := range names {
		modes[i] = string(n)
	}

	return ctx.JSON(serverutils.SuccessResponse("Registered modes", dto.ModesResponse{
		Modes:        modes,
		DefaultMode:  string(c.orchestrator.DefaultMode()),
		FallbackMode: string(c.orchestrator.FallbackMode()),
	}))
}
