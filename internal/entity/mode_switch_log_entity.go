package entity

import (
	"time"

	"github.com/google/uuid"
)

type ModeSwitchLog struct {
	Id        uuid.UUID
	SessionId string
	FromMode  string
	ToMode    string
	Trigger   string
	CreatedAt time.Time
}
