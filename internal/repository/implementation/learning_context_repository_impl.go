package implementation

import (
	"context"
	"errors"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LearningContextRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LearningContextMapper
}

func NewLearningContextRepository(db *gorm.DB) contract.LearningContextRepository {
	return &LearningContextRepositoryImpl{
		db:     db,
		mapper: mapper.NewLearningContextMapper(),
	}
}

func (r *LearningContextRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *LearningContextRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningContext, error) {
	var m model.LearningContext
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *LearningContextRepositoryImpl) Upsert(ctx context.Context, lc *entity.LearningContext) error {
	m, err := r.mapper.ToModel(lc)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active_mode", "last_good_mode", "current_topics", "unresolved_questions",
			"session_goals", "mode_contexts", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	updated, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*lc = *updated
	return nil
}

func (r *LearningContextRepositoryImpl) Delete(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.LearningContext{}).Error
}
