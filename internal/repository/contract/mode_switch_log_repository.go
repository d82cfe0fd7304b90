package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/specification"
)

type ModeSwitchLogRepository interface {
	Create(ctx context.Context, log *entity.ModeSwitchLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ModeSwitchLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
