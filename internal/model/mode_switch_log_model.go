package model

import (
	"time"

	"github.com/google/uuid"
)

type ModeSwitchLog struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string    `gorm:"type:varchar(128);not null;index"`
	FromMode  string    `gorm:"type:varchar(32)"`
	ToMode    string    `gorm:"type:varchar(32);not null"`
	Trigger   string    `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (ModeSwitchLog) TableName() string {
	return "mode_switch_logs"
}
