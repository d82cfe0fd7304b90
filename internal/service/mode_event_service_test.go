package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "MODE_SWITCHED"

type recordingRemote struct {
	events []events.Event
	err    error
}

func (r *recordingRemote) Publish(ctx context.Context, event events.Event) error {
	r.events = append(r.events, event)
	return r.err
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestModeSwitchIsRecordedByConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db := newFakeDB()
	pubSub := newPubSub(t)

	consumer := NewConsumerService(pubSub, testTopic, db, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	remote := &recordingRemote{}
	publisher := NewModeEventService(NewPublisherService(testTopic, pubSub), remote, logger.NewNopLogger())
	require.NoError(t, publisher.Publish(ctx, events.NewModeSwitched("s1", "learn", "assess", "rule")))

	assert.Eventually(t, func() bool { return db.logCount() == 1 }, time.Second, 10*time.Millisecond)
	db.mu.Lock()
	got := db.logs[0]
	db.mu.Unlock()
	assert.Equal(t, "s1", got.SessionId)
	assert.Equal(t, "learn", got.FromMode)
	assert.Equal(t, "assess", got.ToMode)
	assert.Equal(t, "rule", got.Trigger)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Len(t, remote.events, 1)
}

func TestModeEventService_RemoteFailureIsNotReturned(t *testing.T) {
	remote := &recordingRemote{err: errors.New("nats: no responders")}
	publisher := NewModeEventService(NewPublisherService(testTopic, newPubSub(t)), remote, logger.NewNopLogger())

	err := publisher.Publish(context.Background(), events.NewModeSwitched("s1", "", "learn", "default"))

	assert.NoError(t, err)
	assert.Len(t, remote.events, 1)
}

func TestModeEventService_WithoutRemote(t *testing.T) {
	publisher := NewModeEventService(NewPublisherService(testTopic, newPubSub(t)), nil, logger.NewNopLogger())

	assert.NoError(t, publisher.Publish(context.Background(), events.NewModeSwitched("s1", "", "learn", "default")))
}

func TestConsumer_DropsIncompleteMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db := newFakeDB()
	pubSub := newPubSub(t)
	require.NoError(t, NewConsumerService(pubSub, testTopic, db, logger.NewNopLogger()).Consume(ctx))

	audit := NewPublisherService(testTopic, pubSub)
	require.NoError(t, audit.Publish(ctx, []byte("not json")))
	require.NoError(t, audit.Publish(ctx, []byte(`{"session_id":"s1"}`)))

	publisher := NewModeEventService(audit, nil, logger.NewNopLogger())
	require.NoError(t, publisher.Publish(ctx, events.BaseEvent{
		Type: events.TypeModeSwitched,
		Data: map[string]interface{}{events.KeySessionID: "s2", events.KeyToMode: "plan"},
	}))

	assert.Eventually(t, func() bool { return db.logCount() == 1 }, time.Second, 10*time.Millisecond)
}

