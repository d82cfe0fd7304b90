package dto

import (
	"time"

	"github.com/google/uuid"
)

type GetLogsRequest struct {
	Level  string `query:"level" validate:"omitempty,oneof=debug info warn error"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type GetModeSwitchesRequest struct {
	SessionId string `query:"session_id"`
	ToMode    string `query:"to_mode"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
}

type ModeSwitchLogResponse struct {
	Id        uuid.UUID `json:"id"`
	SessionId string    `json:"session_id"`
	FromMode  string    `json:"from_mode"`
	ToMode    string    `json:"to_mode"`
	Trigger   string    `json:"trigger"`
	CreatedAt time.Time `json:"created_at"`
}

type GetModeSwitchesResponse struct {
	Items []*ModeSwitchLogResponse `json:"items"`
	Total int64                    `json:"total"`
}

// ModeSwitchMessage is the payload carried on the in-process audit topic
type ModeSwitchMessage struct {
	SessionId  string `json:"session_id"`
	FromMode   string `json:"from_mode"`
	ToMode     string `json:"to_mode"`
	Trigger    string `json:"trigger"`
	OccurredAt string `json:"occurred_at"`
}
