package switcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/session"
)

const logModule = "ModeSwitch"

// TriggerRollback marks the switch back to the last good mode after nothing could serve
// a request
const TriggerRollback = "rollback"

// EventPublisher receives MODE_SWITCHED notifications
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Coordinator moves a session from one mode to another. Export, persist and restore fail
// independently; none of them can stop the switch itself.
type Coordinator struct {
	registry    *mode.Registry
	persistence session.Persistence
	publisher   EventPublisher
	logger      logger.ILogger
}

// NewCoordinator creates a coordinator. persistence and publisher may be nil.
func NewCoordinator(registry *mode.Registry, persistence session.Persistence, publisher EventPublisher, log logger.ILogger) *Coordinator {
	return &Coordinator{
		registry:    registry,
		persistence: persistence,
		publisher:   publisher,
		logger:      log,
	}
}

// SwitchTo sets sess.ActiveMode to target, moving handler context along the way.
// It reports whether a switch happened; switching to the active mode does nothing.
// The caller must hold the session lock.
func (c *Coordinator) SwitchTo(ctx context.Context, sess *session.Session, target mode.Name, trigger string) bool {
	if sess.ActiveMode == target {
		return false
	}
	from := sess.ActiveMode
	details := map[string]interface{}{
		"session_id": sess.ID,
		"from_mode":  string(from),
		"to_mode":    string(target),
		"trigger":    trigger,
	}

	// 1. Export outgoing context; the pre-state of a new session has nothing to export
	if !sess.IsNew() {
		if data := c.export(ctx, sess.ID, from); data != nil {
			// 2. Keep it in memory, then read-merge-write into persistence
			if sess.ModeContexts == nil {
				sess.ModeContexts = make(map[mode.Name]json.RawMessage)
			}
			sess.ModeContexts[from] = data
			c.persist(ctx, sess.ID, from, data)
		}
	}

	// 3. Commit the transition
	sess.ActiveMode = target
	c.logger.Info(logModule, "Switched mode", details)

	// 4. Restore incoming context from a fresh read
	c.restore(ctx, sess, target)

	// 5. Notify
	c.publish(ctx, sess.ID, from, target, trigger)
	return true
}

// export returns nil when the handler is missing, opts out of context support, has
// nothing to save, or fails. A failed export only loses the outgoing context.
func (c *Coordinator) export(ctx context.Context, sessionID string, from mode.Name) json.RawMessage {
	details := map[string]interface{}{
		"session_id": sessionID,
		"mode":       string(from),
		"operation":  "export_context",
	}
	h, ok := c.registry.Handler(from)
	if !ok {
		return nil
	}
	cp, ok := mode.AsContextProvider(h)
	if !ok {
		c.logger.Debug(logModule, "Handler does not support context export", details)
		return nil
	}

	data, err := safeExport(ctx, cp, sessionID)
	if err != nil {
		details["error"] = err.Error()
		c.logger.Error(logModule, "Failed to export mode context, continuing without it", details)
		return nil
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if !json.Valid(data) {
		c.logger.Error(logModule, "Handler exported invalid JSON context, discarding it", details)
		return nil
	}
	return data
}

// persist merges one mode's context into the stored record. Other modes' contexts and
// the record's other fields are preserved. Failures leave only the in-memory copy.
func (c *Coordinator) persist(ctx context.Context, sessionID string, m mode.Name, data json.RawMessage) {
	details := map[string]interface{}{
		"session_id": sessionID,
		"mode":       string(m),
		"operation":  "persist_context",
	}
	record, ok := c.readForMerge(ctx, sessionID, details)
	if !ok {
		return
	}

	if record.ModeContexts == nil {
		record.ModeContexts = make(map[mode.Name]json.RawMessage)
	}
	record.ModeContexts[m] = data

	if err := c.persistence.SaveSessionContext(ctx, record); err != nil {
		details["error"] = err.Error()
		c.logger.Error(logModule, "Failed to persist mode context, continuing with in-memory state", details)
		return
	}
	c.logger.Debug(logModule, "Persisted mode context", details)
}

// Checkpoint writes the session's active and last good mode into the stored record so a
// session that drops out of memory resumes in the same mode. Failures are logged only.
// The caller must hold the session lock.
func (c *Coordinator) Checkpoint(ctx context.Context, sess *session.Session) {
	details := map[string]interface{}{
		"session_id":     sess.ID,
		"mode":           string(sess.ActiveMode),
		"last_good_mode": string(sess.LastGoodMode),
		"operation":      "checkpoint_mode",
	}
	record, ok := c.readForMerge(ctx, sess.ID, details)
	if !ok {
		return
	}

	record.ActiveMode = sess.ActiveMode
	record.LastGoodMode = sess.LastGoodMode

	if err := c.persistence.SaveSessionContext(ctx, record); err != nil {
		details["error"] = err.Error()
		c.logger.Error(logModule, "Failed to persist active mode", details)
		return
	}
	c.logger.Debug(logModule, "Persisted active mode", details)
}

// Resume rebuilds a session that is no longer held in memory from its stored record. It
// reports false, leaving sess untouched, when nothing usable is stored. The active mode's
// context goes back to its handler unless the handler still holds state for the session.
// The caller must hold the session lock.
func (c *Coordinator) Resume(ctx context.Context, sess *session.Session) bool {
	if c.persistence == nil {
		return false
	}
	details := map[string]interface{}{
		"session_id": sess.ID,
		"operation":  "resume_session",
	}

	record, err := c.persistence.GetSessionContext(ctx, sess.ID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			details["error"] = err.Error()
			c.logger.Error(logModule, "Failed to load stored session, starting it as new", details)
		}
		return false
	}
	if record == nil || record.ActiveMode == "" {
		return false
	}

	sess.ActiveMode = record.ActiveMode
	sess.LastGoodMode = record.LastGoodMode
	sess.ModeContexts = session.CloneContexts(record.ModeContexts)
	details["mode"] = string(sess.ActiveMode)

	if data, ok := sess.ModeContexts[sess.ActiveMode]; ok && len(data) > 0 {
		if c.export(ctx, sess.ID, sess.ActiveMode) == nil {
			c.apply(ctx, sess, sess.ActiveMode, data)
		}
	}
	c.logger.Info(logModule, "Resumed session from stored record", details)
	return true
}

// readForMerge returns the stored record to merge into, or a new one when none exists.
// It reports false when the record cannot be read; writing without it would clobber
// fields owned by other components.
func (c *Coordinator) readForMerge(ctx context.Context, sessionID string, details map[string]interface{}) (*session.Record, bool) {
	if c.persistence == nil {
		return nil, false
	}
	record, err := c.persistence.GetSessionContext(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		record = &session.Record{SessionID: sessionID}
	case err != nil:
		details["error"] = err.Error()
		c.logger.Error(logModule, "Failed to read session context before save, skipping persist", details)
		return nil, false
	case record == nil:
		record = &session.Record{SessionID: sessionID}
	}
	record.SessionID = sessionID
	return record, true
}

func (c *Coordinator) restore(ctx context.Context, sess *session.Session, target mode.Name) {
	h, ok := c.registry.Handler(target)
	if !ok {
		return
	}
	if _, ok := mode.AsContextProvider(h); !ok {
		return
	}

	data := c.load(ctx, sess, target)
	if data == nil {
		return
	}
	c.apply(ctx, sess, target, data)
}

// apply keeps data as the session's copy of target's context and hands it to the handler
func (c *Coordinator) apply(ctx context.Context, sess *session.Session, target mode.Name, data json.RawMessage) {
	details := map[string]interface{}{
		"session_id": sess.ID,
		"mode":       string(target),
		"operation":  "restore_context",
	}
	h, ok := c.registry.Handler(target)
	if !ok {
		return
	}
	cp, ok := mode.AsContextProvider(h)
	if !ok {
		return
	}

	if sess.ModeContexts == nil {
		sess.ModeContexts = make(map[mode.Name]json.RawMessage)
	}
	sess.ModeContexts[target] = data

	if err := safeRestore(ctx, cp, sess.ID, data); err != nil {
		details["error"] = err.Error()
		c.logger.Error(logModule, "Failed to restore mode context, handler keeps its default state", details)
		return
	}
	c.logger.Debug(logModule, "Restored mode context", details)
}

// load prefers the persisted record and falls back to what the session holds in memory
func (c *Coordinator) load(ctx context.Context, sess *session.Session, target mode.Name) json.RawMessage {
	if c.persistence != nil {
		record, err := c.persistence.GetSessionContext(ctx, sess.ID)
		switch {
		case err == nil && record != nil:
			if data, ok := record.ModeContexts[target]; ok && len(data) > 0 {
				return data
			}
		case err != nil && !errors.Is(err, session.ErrNotFound):
			c.logger.Warn(logModule, "Failed to load session context, using in-memory copy", map[string]interface{}{
				"session_id": sess.ID,
				"mode":       string(target),
				"error":      err.Error(),
			})
		}
	}
	if data, ok := sess.ModeContexts[target]; ok && len(data) > 0 {
		return data
	}
	return nil
}

func (c *Coordinator) publish(ctx context.Context, sessionID string, from, to mode.Name, trigger string) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, events.NewModeSwitched(sessionID, string(from), string(to), trigger)); err != nil {
		c.logger.Warn(logModule, "Failed to publish mode switch event", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func safeExport(ctx context.Context, cp mode.ContextProvider, sessionID string) (data json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("export panic: %v", rec)
		}
	}()
	return cp.ExportContext(ctx, sessionID)
}

func safeRestore(ctx context.Context, cp mode.ContextProvider, sessionID string, data json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("restore panic: %v", rec)
		}
	}()
	return cp.RestoreContext(ctx, sessionID, data)
}
