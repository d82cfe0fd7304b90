package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/unitofwork"
	"ai-tutor-be/pkg/mode/switcher"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	uowFactory  unitofwork.RepositoryFactory
	auditLogger logger.ILogger
}

// NewConsumerService consumes the mode switch audit topic and records every switch in
// mode_switch_logs.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	auditLogger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		uowFactory:  uowFactory,
		auditLogger: auditLogger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ModeSwitchMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.auditLogger.Error("ModeSwitchAudit", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // retrying cannot fix a malformed message
		return
	}

	details := map[string]interface{}{
		"session_id": payload.SessionId,
		"from_mode":  payload.FromMode,
		"to_mode":    payload.ToMode,
		"trigger":    payload.Trigger,
	}

	// a rollback of a brand-new session returns it to the empty pre-state
	if payload.SessionId == "" || (payload.ToMode == "" && payload.Trigger != switcher.TriggerRollback) {
		cs.auditLogger.Warn("ModeSwitchAudit", "Dropping incomplete mode switch message", details)
		msg.Ack()
		return
	}

	createdAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339Nano, payload.OccurredAt); err == nil {
		createdAt = t
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	err := uow.ModeSwitchLogRepository().Create(ctx, &entity.ModeSwitchLog{
		Id:        uuid.New(),
		SessionId: payload.SessionId,
		FromMode:  payload.FromMode,
		ToMode:    payload.ToMode,
		Trigger:   payload.Trigger,
		CreatedAt: createdAt,
	})
	if err != nil {
		details["error"] = err.Error()
		cs.auditLogger.Error("ModeSwitchAudit", "Failed to record mode switch", details)
		msg.Nack()
		return
	}

	cs.auditLogger.Info("ModeSwitchAudit", "Mode switch recorded", details)
	msg.Ack()
}
