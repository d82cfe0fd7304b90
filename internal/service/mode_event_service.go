package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/mode/switcher"
)

type modeEventService struct {
	audit  IPublisherService
	remote switcher.EventPublisher
	logger logger.ILogger
}

// NewModeEventService fans MODE_SWITCHED events out to the in-process audit topic and,
// when remote is not nil, to the external event bus.
func NewModeEventService(audit IPublisherService, remote switcher.EventPublisher, log logger.ILogger) switcher.EventPublisher {
	return &modeEventService{
		audit:  audit,
		remote: remote,
		logger: log,
	}
}

func (s *modeEventService) Publish(ctx context.Context, event events.Event) error {
	if event.EventType() == events.TypeModeSwitched {
		msg := dto.ModeSwitchMessage{
			SessionId:  events.StringField(event, events.KeySessionID),
			FromMode:   events.StringField(event, events.KeyFromMode),
			ToMode:     events.StringField(event, events.KeyToMode),
			Trigger:    events.StringField(event, events.KeyTrigger),
			OccurredAt: events.StringField(event, events.KeyOccurredAt),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal mode switch message: %w", err)
		}
		if err := s.audit.Publish(ctx, payload); err != nil {
			return fmt.Errorf("failed to publish mode switch to audit topic: %w", err)
		}
	}

	if s.remote != nil {
		// The external bus is auxiliary, a failure there is only logged
		if err := s.remote.Publish(ctx, event); err != nil {
			s.logger.Warn("ModeEvents", "Failed to publish event to NATS", map[string]interface{}{
				"event_type": event.EventType(),
				"error":      err.Error(),
			})
		}
	}
	return nil
}
