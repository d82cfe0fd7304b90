package switcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/modetest"
	"ai-tutor-be/pkg/mode/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	learner     *modetest.ContextHandler
	reviewer    *modetest.ContextHandler
	assessor    *modetest.Handler
	persistence *modetest.Persistence
	publisher   *modetest.Publisher
	coordinator *Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		learner:     modetest.NewContextHandler(mode.Learn),
		reviewer:    modetest.NewContextHandler(mode.Review),
		assessor:    modetest.NewHandler(mode.Assess),
		persistence: modetest.NewPersistence(),
		publisher:   &modetest.Publisher{},
	}
	registry := mode.NewRegistry(
		[]mode.Name{mode.Learn, mode.Review, mode.Assess, mode.Plan},
		map[mode.Name]mode.Handler{
			mode.Learn:  f.learner,
			mode.Review: f.reviewer,
			mode.Assess: f.assessor,
		},
	)
	f.coordinator = NewCoordinator(registry, f.persistence, f.publisher, logger.NewNopLogger())
	return f
}

func activeSession(id string, m mode.Name) *session.Session {
	s := session.New(id)
	s.ActiveMode = m
	return s
}

func TestSwitchTo_SameModeIsNoop(t *testing.T) {
	f := newFixture()
	f.learner.SetState("s1", "cells")
	sess := activeSession("s1", mode.Learn)

	switched := f.coordinator.SwitchTo(context.Background(), sess, mode.Learn, "rule")

	assert.False(t, switched)
	assert.Equal(t, 0, f.learner.Exports())
	assert.Equal(t, 0, f.learner.Restores())
	assert.Equal(t, 0, f.persistence.Saves())
	assert.Empty(t, f.publisher.Events())
}

func TestSwitchTo_NewSessionSkipsExport(t *testing.T) {
	f := newFixture()
	sess := session.New("s1")

	switched := f.coordinator.SwitchTo(context.Background(), sess, mode.Review, "rule")

	assert.True(t, switched)
	assert.Equal(t, mode.Review, sess.ActiveMode)
	assert.Equal(t, 0, f.learner.Exports())
	assert.Equal(t, 0, f.reviewer.Exports())
	assert.Equal(t, 0, f.persistence.Saves())

	evts := f.publisher.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeModeSwitched, evts[0].EventType())
	assert.Equal(t, "", events.StringField(evts[0], events.KeyFromMode))
	assert.Equal(t, "review", events.StringField(evts[0], events.KeyToMode))
}

func TestSwitchTo_ExportsPersistsAndRestores(t *testing.T) {
	f := newFixture()
	f.learner.SetState("s1", "photosynthesis")
	sess := activeSession("s1", mode.Learn)

	f.coordinator.SwitchTo(context.Background(), sess, mode.Review, "rule")

	assert.Equal(t, 1, f.learner.Exports())
	record, ok := f.persistence.Record("s1")
	require.True(t, ok)
	assert.JSONEq(t, `{"state":"photosynthesis"}`, string(record.ModeContexts[mode.Learn]))
	assert.JSONEq(t, `{"state":"photosynthesis"}`, string(sess.ModeContexts[mode.Learn]))
	// reviewer had nothing stored, so nothing to restore
	assert.Equal(t, 0, f.reviewer.Restores())
}

func TestSwitchTo_ContextRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.learner.SetState("s1", "mitosis")
	sess := activeSession("s1", mode.Learn)

	f.coordinator.SwitchTo(ctx, sess, mode.Review, "rule")
	f.learner.Reset()
	f.coordinator.SwitchTo(ctx, sess, mode.Learn, "override")

	assert.Equal(t, "mitosis", f.learner.State("s1"))
	assert.Equal(t, 1, f.learner.Restores())
}

func TestSwitchTo_MergePreservesOtherFields(t *testing.T) {
	f := newFixture()
	f.persistence.Put(&session.Record{
		SessionID:    "s1",
		ModeContexts: map[mode.Name]json.RawMessage{mode.Plan: json.RawMessage(`{"goal":"exam"}`)},
		Extra:        map[string]interface{}{"session_goals": "pass biology"},
	})
	f.learner.SetState("s1", "cells")
	sess := activeSession("s1", mode.Learn)

	f.coordinator.SwitchTo(context.Background(), sess, mode.Assess, "classifier")

	record, ok := f.persistence.Record("s1")
	require.True(t, ok)
	assert.Equal(t, "pass biology", record.Extra["session_goals"])
	assert.JSONEq(t, `{"goal":"exam"}`, string(record.ModeContexts[mode.Plan]))
	assert.JSONEq(t, `{"state":"cells"}`, string(record.ModeContexts[mode.Learn]))
}

func TestSwitchTo_ExportFailureDoesNotAbort(t *testing.T) {
	for name, breakIt := range map[string]func(h *modetest.ContextHandler){
		"error": func(h *modetest.ContextHandler) { h.FailExport(errors.New("boom")) },
		"panic": func(h *modetest.ContextHandler) { h.PanicOnExport() },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.learner.SetState("s1", "cells")
			breakIt(f.learner)
			sess := activeSession("s1", mode.Learn)

			switched := f.coordinator.SwitchTo(context.Background(), sess, mode.Review, "rule")

			assert.True(t, switched)
			assert.Equal(t, mode.Review, sess.ActiveMode)
			assert.Equal(t, 0, f.persistence.Saves())
		})
	}
}

func TestSwitchTo_PersistFailureKeepsInMemoryContext(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.persistence.FailSave(errors.New("db down"))
	f.learner.SetState("s1", "cells")
	sess := activeSession("s1", mode.Learn)

	f.coordinator.SwitchTo(ctx, sess, mode.Review, "rule")
	assert.Equal(t, mode.Review, sess.ActiveMode)
	assert.JSONEq(t, `{"state":"cells"}`, string(sess.ModeContexts[mode.Learn]))

	// switching back restores from memory since nothing reached persistence
	f.learner.Reset()
	f.coordinator.SwitchTo(ctx, sess, mode.Learn, "rule")
	assert.Equal(t, "cells", f.learner.State("s1"))
}

func TestSwitchTo_ReadFailureSkipsPersist(t *testing.T) {
	f := newFixture()
	f.persistence.FailGet(errors.New("db down"))
	f.learner.SetState("s1", "cells")
	sess := activeSession("s1", mode.Learn)

	f.coordinator.SwitchTo(context.Background(), sess, mode.Review, "rule")

	assert.Equal(t, mode.Review, sess.ActiveMode)
	assert.Equal(t, 0, f.persistence.Saves())
}

func TestSwitchTo_RestoreFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.persistence.Put(&session.Record{
		SessionID:    "s1",
		ModeContexts: map[mode.Name]json.RawMessage{mode.Review: json.RawMessage(`{"state":"old"}`)},
	})
	f.reviewer.FailRestore(errors.New("corrupt"))
	sess := activeSession("s1", mode.Learn)

	switched := f.coordinator.SwitchTo(context.Background(), sess, mode.Review, "rule")

	assert.True(t, switched)
	assert.Equal(t, mode.Review, sess.ActiveMode)
	assert.Equal(t, 1, f.reviewer.Restores())
	assert.Equal(t, "", f.reviewer.State("s1"))
}

func TestSwitchTo_HandlerWithoutContextSupport(t *testing.T) {
	f := newFixture()
	f.persistence.Put(&session.Record{
		SessionID:    "s1",
		ModeContexts: map[mode.Name]json.RawMessage{mode.Learn: json.RawMessage(`{"state":"kept"}`)},
	})
	sess := activeSession("s1", mode.Assess)

	f.coordinator.SwitchTo(context.Background(), sess, mode.Learn, "rule")

	assert.Equal(t, 0, f.persistence.Saves())
	assert.Equal(t, "kept", f.learner.State("s1"))
}

func TestSwitchTo_PublishFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.publisher.Fail(errors.New("nats down"))
	sess := activeSession("s1", mode.Learn)

	assert.True(t, f.coordinator.SwitchTo(context.Background(), sess, mode.Assess, "rule"))
	assert.Equal(t, mode.Assess, sess.ActiveMode)
}

func TestSwitchTo_NilCollaborators(t *testing.T) {
	learner := modetest.NewContextHandler(mode.Learn)
	learner.SetState("s1", "x")
	registry := mode.NewRegistry([]mode.Name{mode.Learn, mode.Plan}, map[mode.Name]mode.Handler{mode.Learn: learner})
	c := NewCoordinator(registry, nil, nil, logger.NewNopLogger())
	sess := activeSession("s1", mode.Learn)

	assert.True(t, c.SwitchTo(context.Background(), sess, mode.Plan, "fallback"))
	assert.Equal(t, mode.Plan, sess.ActiveMode)
	assert.JSONEq(t, `{"state":"x"}`, string(sess.ModeContexts[mode.Learn]))
}

func TestCheckpoint_MergesModesIntoRecord(t *testing.T) {
	f := newFixture()
	f.persistence.Put(&session.Record{
		SessionID:    "s1",
		ModeContexts: map[mode.Name]json.RawMessage{mode.Learn: json.RawMessage(`{"state":"cells"}`)},
		Extra:        map[string]interface{}{"session_goals": "pass biology"},
	})
	sess := activeSession("s1", mode.Review)
	sess.LastGoodMode = mode.Review

	f.coordinator.Checkpoint(context.Background(), sess)

	record, ok := f.persistence.Record("s1")
	require.True(t, ok)
	assert.Equal(t, mode.Review, record.ActiveMode)
	assert.Equal(t, mode.Review, record.LastGoodMode)
	assert.Equal(t, "pass biology", record.Extra["session_goals"])
	assert.JSONEq(t, `{"state":"cells"}`, string(record.ModeContexts[mode.Learn]))
}

func TestCheckpoint_ReadFailureSkipsSave(t *testing.T) {
	f := newFixture()
	f.persistence.FailGet(errors.New("db down"))

	f.coordinator.Checkpoint(context.Background(), activeSession("s1", mode.Learn))

	assert.Equal(t, 0, f.persistence.Saves())
}

func TestResume(t *testing.T) {
	stored := &session.Record{
		SessionID:    "s1",
		ActiveMode:   mode.Learn,
		LastGoodMode: mode.Learn,
		ModeContexts: map[mode.Name]json.RawMessage{
			mode.Learn:  json.RawMessage(`{"state":"cells"}`),
			mode.Review: json.RawMessage(`{"state":"enzymes"}`),
		},
	}

	t.Run("restores the active mode only", func(t *testing.T) {
		f := newFixture()
		f.persistence.Put(stored)
		sess := session.New("s1")

		require.True(t, f.coordinator.Resume(context.Background(), sess))

		assert.Equal(t, mode.Learn, sess.ActiveMode)
		assert.Equal(t, mode.Learn, sess.LastGoodMode)
		assert.Equal(t, "cells", f.learner.State("s1"))
		assert.Equal(t, "", f.reviewer.State("s1"))
		assert.JSONEq(t, `{"state":"enzymes"}`, string(sess.ModeContexts[mode.Review]))
	})

	t.Run("keeps live handler state", func(t *testing.T) {
		f := newFixture()
		f.persistence.Put(stored)
		f.learner.SetState("s1", "mitochondria")

		require.True(t, f.coordinator.Resume(context.Background(), session.New("s1")))

		assert.Equal(t, "mitochondria", f.learner.State("s1"))
		assert.Equal(t, 0, f.learner.Restores())
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := newFixture()
		sess := session.New("s1")

		assert.False(t, f.coordinator.Resume(context.Background(), sess))
		assert.True(t, sess.IsNew())
	})

	t.Run("record without a mode", func(t *testing.T) {
		f := newFixture()
		f.persistence.Put(&session.Record{SessionID: "s1"})

		assert.False(t, f.coordinator.Resume(context.Background(), session.New("s1")))
	})

	t.Run("read failure", func(t *testing.T) {
		f := newFixture()
		f.persistence.FailGet(errors.New("db down"))
		sess := session.New("s1")

		assert.False(t, f.coordinator.Resume(context.Background(), sess))
		assert.True(t, sess.IsNew())
	})
}

func TestSwitchTo_RollbackToNewSessionState(t *testing.T) {
	f := newFixture()
	sess := activeSession("s1", mode.Plan)

	switched := f.coordinator.SwitchTo(context.Background(), sess, "", TriggerRollback)

	assert.True(t, switched)
	assert.True(t, sess.IsNew())
	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, TriggerRollback, events.StringField(published[0], events.KeyTrigger))
	assert.Equal(t, "plan", events.StringField(published[0], events.KeyFromMode))
}
