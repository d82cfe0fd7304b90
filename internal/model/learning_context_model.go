package model

import (
	"time"

	"gorm.io/datatypes"
)

type LearningContext struct {
	SessionId           string                      `gorm:"type:varchar(128);primaryKey"`
	ActiveMode          string                      `gorm:"type:varchar(32);not null;default:''"`
	LastGoodMode        string                      `gorm:"type:varchar(32);not null;default:''"`
	CurrentTopics       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	UnresolvedQuestions datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	SessionGoals        string                      `gorm:"type:text"`
	ModeContexts        datatypes.JSON              `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt           time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"autoUpdateTime"`
}

func (LearningContext) TableName() string {
	return "learning_contexts"
}
