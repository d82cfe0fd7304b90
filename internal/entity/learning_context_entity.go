package entity

import (
	"encoding/json"
	"time"
)

type LearningContext struct {
	SessionId           string
	ActiveMode          string
	LastGoodMode        string
	CurrentTopics       []string
	UnresolvedQuestions []string
	SessionGoals        string
	ModeContexts        map[string]json.RawMessage
	CreatedAt           time.Time
	UpdatedAt           *time.Time
}
