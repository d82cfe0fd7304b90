package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/specification"
)

type LearningContextRepository interface {
	// FindOne returns nil, nil when nothing matches
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningContext, error)
	Upsert(ctx context.Context, lc *entity.LearningContext) error
	Delete(ctx context.Context, sessionId string) error
}
