package dto

import (
	"encoding/json"
	"time"
)

type CreateSessionResponse struct {
	SessionId   string `json:"session_id"`
	DefaultMode string `json:"default_mode"`
}

type InteractRequest struct {
	UserInput   string                 `json:"user_input" validate:"required"`
	CurrentMode string                 `json:"current_mode"`
	RequestType string                 `json:"request_type" validate:"omitempty,max=64"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   string                 `json:"timestamp"`
}

type LearningContextResponse struct {
	SessionId           string                     `json:"session_id"`
	ActiveMode          string                     `json:"active_mode"`
	CurrentTopics       []string                   `json:"current_topics"`
	UnresolvedQuestions []string                   `json:"unresolved_questions"`
	SessionGoals        string                     `json:"session_goals"`
	ModeContexts        map[string]json.RawMessage `json:"mode_contexts"`
	UpdatedAt           *time.Time                 `json:"updated_at"`
}

type SessionContextResponse struct {
	SessionId       string                   `json:"session_id"`
	ActiveMode      string                   `json:"active_mode,omitempty"`
	LearningContext *LearningContextResponse `json:"learning_context"`
}

type ModesResponse struct {
	Modes        []string `json:"modes"`
	DefaultMode  string   `json:"default_mode"`
	FallbackMode string   `json:"fallback_mode"`
}
