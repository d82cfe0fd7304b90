package service

import (
	"context"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/specification"
	"ai-tutor-be/internal/repository/unitofwork"
)

// LogReader reads back entries written by the application logger
type LogReader interface {
	GetLogs(level string, limit, offset int) ([]logger.LogEntry, error)
	GetLogById(id string) (*logger.LogEntry, error)
}

type IMonitoringService interface {
	GetLogs(ctx context.Context, req *dto.GetLogsRequest) ([]logger.LogEntry, error)
	GetLogById(ctx context.Context, id string) (*logger.LogEntry, error)
	GetModeSwitches(ctx context.Context, req *dto.GetModeSwitchesRequest) (*dto.GetModeSwitchesResponse, error)
}

type monitoringService struct {
	logs       LogReader
	uowFactory unitofwork.RepositoryFactory
}

func NewMonitoringService(logs LogReader, uowFactory unitofwork.RepositoryFactory) IMonitoringService {
	return &monitoringService{
		logs:       logs,
		uowFactory: uowFactory,
	}
}

func (s *monitoringService) GetLogs(ctx context.Context, req *dto.GetLogsRequest) ([]logger.LogEntry, error) {
	return s.logs.GetLogs(req.Level, req.Limit, req.Offset)
}

func (s *monitoringService) GetLogById(ctx context.Context, id string) (*logger.LogEntry, error) {
	return s.logs.GetLogById(id)
}

func (s *monitoringService) GetModeSwitches(ctx context.Context, req *dto.GetModeSwitchesRequest) (*dto.GetModeSwitchesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var filters []specification.Specification
	if req.SessionId != "" {
		filters = append(filters, specification.BySessionID{SessionID: req.SessionId})
	}
	if req.ToMode != "" {
		filters = append(filters, specification.ByToMode{Mode: req.ToMode})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ModeSwitchLogRepository()

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	specs := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)
	logs, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ModeSwitchLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, &dto.ModeSwitchLogResponse{
			Id:        l.Id,
			SessionId: l.SessionId,
			FromMode:  l.FromMode,
			ToMode:    l.ToMode,
			Trigger:   l.Trigger,
			CreatedAt: l.CreatedAt,
		})
	}

	return &dto.GetModeSwitchesResponse{Items: items, Total: total}, nil
}
