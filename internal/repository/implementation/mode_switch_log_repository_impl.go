package implementation

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ModeSwitchLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ModeSwitchLogMapper
}

func NewModeSwitchLogRepository(db *gorm.DB) contract.ModeSwitchLogRepository {
	return &ModeSwitchLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewModeSwitchLogMapper(),
	}
}

func (r *ModeSwitchLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ModeSwitchLogRepositoryImpl) Create(ctx context.Context, log *entity.ModeSwitchLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *ModeSwitchLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ModeSwitchLog, error) {
	var models []*model.ModeSwitchLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ModeSwitchLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ModeSwitchLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
