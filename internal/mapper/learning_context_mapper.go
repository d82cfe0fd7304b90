package mapper

import (
	"encoding/json"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
)

type LearningContextMapper struct{}

func NewLearningContextMapper() *LearningContextMapper {
	return &LearningContextMapper{}
}

func (m *LearningContextMapper) ToEntity(lc *model.LearningContext) (*entity.LearningContext, error) {
	if lc == nil {
		return nil, nil
	}

	contexts := make(map[string]json.RawMessage)
	if len(lc.ModeContexts) > 0 {
		if err := json.Unmarshal(lc.ModeContexts, &contexts); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !lc.UpdatedAt.IsZero() {
		t := lc.UpdatedAt
		updatedAt = &t
	}

	return &entity.LearningContext{
		SessionId:           lc.SessionId,
		ActiveMode:          lc.ActiveMode,
		LastGoodMode:        lc.LastGoodMode,
		CurrentTopics:       []string(lc.CurrentTopics),
		UnresolvedQuestions: []string(lc.UnresolvedQuestions),
		SessionGoals:        lc.SessionGoals,
		ModeContexts:        contexts,
		CreatedAt:           lc.CreatedAt,
		UpdatedAt:           updatedAt,
	}, nil
}

func (m *LearningContextMapper) ToModel(lc *entity.LearningContext) (*model.LearningContext, error) {
	if lc == nil {
		return nil, nil
	}

	contexts := lc.ModeContexts
	if contexts == nil {
		contexts = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(contexts)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if lc.UpdatedAt != nil {
		updatedAt = *lc.UpdatedAt
	}

	return &model.LearningContext{
		SessionId:           lc.SessionId,
		ActiveMode:          lc.ActiveMode,
		LastGoodMode:        lc.LastGoodMode,
		CurrentTopics:       lc.CurrentTopics,
		UnresolvedQuestions: lc.UnresolvedQuestions,
		SessionGoals:        lc.SessionGoals,
		ModeContexts:        raw,
		CreatedAt:           lc.CreatedAt,
		UpdatedAt:           updatedAt,
	}, nil
}

type ModeSwitchLogMapper struct{}

func NewModeSwitchLogMapper() *ModeSwitchLogMapper {
	return &ModeSwitchLogMapper{}
}

func (m *ModeSwitchLogMapper) ToEntity(l *model.ModeSwitchLog) *entity.ModeSwitchLog {
	if l == nil {
		return nil
	}
	return &entity.ModeSwitchLog{
		Id:        l.Id,
		SessionId: l.SessionId,
		FromMode:  l.FromMode,
		ToMode:    l.ToMode,
		Trigger:   l.Trigger,
		CreatedAt: l.CreatedAt,
	}
}

func (m *ModeSwitchLogMapper) ToModel(l *entity.ModeSwitchLog) *model.ModeSwitchLog {
	if l == nil {
		return nil
	}
	return &model.ModeSwitchLog{
		Id:        l.Id,
		SessionId: l.SessionId,
		FromMode:  l.FromMode,
		ToMode:    l.ToMode,
		Trigger:   l.Trigger,
		CreatedAt: l.CreatedAt,
	}
}

func (m *ModeSwitchLogMapper) ToEntities(models []*model.ModeSwitchLog) []*entity.ModeSwitchLog {
	out := make([]*entity.ModeSwitchLog, len(models))
	for i, l := range models {
		out[i] = m.ToEntity(l)
	}
	return out
}
