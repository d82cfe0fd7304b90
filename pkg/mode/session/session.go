package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-tutor-be/pkg/mode"
)

// ErrNotFound is returned by Persistence when no record exists for a session
var ErrNotFound = errors.New("session context not found")

// Session is the per-user conversation state. ActiveMode is empty only before the first
// request has been served.
type Session struct {
	ID           string
	ActiveMode   mode.Name
	LastGoodMode mode.Name
	ModeContexts map[mode.Name]json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New returns an uninitialized session
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		ModeContexts: make(map[mode.Name]json.RawMessage),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsNew reports whether the session is still in the implicit pre-state
func (s *Session) IsNew() bool {
	return s.ActiveMode == ""
}

// Clone returns a deep copy so concurrent callers never share maps or byte slices
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.ModeContexts = CloneContexts(s.ModeContexts)
	return &out
}

// CloneContexts deep-copies a mode context map
func CloneContexts(in map[mode.Name]json.RawMessage) map[mode.Name]json.RawMessage {
	out := make(map[mode.Name]json.RawMessage, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		cp := make(json.RawMessage, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Record is the persisted learning context. ActiveMode, LastGoodMode and ModeContexts
// are owned by the mode machinery; Extra holds the other columns and is written back
// untouched.
type Record struct {
	SessionID    string
	ActiveMode   mode.Name
	LastGoodMode mode.Name
	ModeContexts map[mode.Name]json.RawMessage
	Extra        map[string]interface{}
}

// Persistence is the external store for session records
type Persistence interface {
	GetSessionContext(ctx context.Context, sessionID string) (*Record, error)
	SaveSessionContext(ctx context.Context, record *Record) error
}
