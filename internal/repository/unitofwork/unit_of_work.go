package unitofwork

import (
	"context"

	"ai-tutor-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	LearningContextRepository() contract.LearningContextRepository
	ModeSwitchLogRepository() contract.ModeSwitchLogRepository
}
