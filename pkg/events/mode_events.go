package events

import "time"

const TypeModeSwitched = "MODE_SWITCHED"

// Payload keys of a MODE_SWITCHED event
const (
	KeySessionID  = "session_id"
	KeyFromMode   = "from_mode"
	KeyToMode     = "to_mode"
	KeyTrigger    = "trigger"
	KeyOccurredAt = "occurred_at"
)

// NewModeSwitched builds the event emitted after a session changes mode.
// from is empty when a new session enters its first mode.
func NewModeSwitched(sessionID, from, to, trigger string) BaseEvent {
	now := time.Now().UTC()
	return BaseEvent{
		Type: TypeModeSwitched,
		Data: map[string]interface{}{
			KeySessionID:  sessionID,
			KeyFromMode:   from,
			KeyToMode:     to,
			KeyTrigger:    trigger,
			KeyOccurredAt: now.Format(time.RFC3339Nano),
		},
		OccurredAt: now,
	}
}

// StringField reads a string payload value, returning "" when absent or not a string
func StringField(e Event, key string) string {
	if e == nil {
		return ""
	}
	v, _ := e.Payload()[key].(string)
	return v
}
