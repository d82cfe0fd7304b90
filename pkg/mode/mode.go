package mode

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Name identifies one operating state of a tutoring session
type Name string

// Reference deployment mode names
const (
	Plan   Name = "plan"
	Learn  Name = "learn"
	Assess Name = "assess"
	Review Name = "review"

	// HardFallback is used when even the configured fallback mode is not registered
	HardFallback = Learn
)

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrUnsupportedRequest is returned by a handler that has no capability for a request type
	ErrUnsupportedRequest = errors.New("unsupported request type")

	// ErrConfiguration marks the unrecoverable case: no registered handler can serve the session
	ErrConfiguration = errors.New("mode configuration error")

	// ErrMissingRequestType is a routing error raised before any handler is invoked
	ErrMissingRequestType = errors.New("missing request_type")
)

// ParseName normalizes raw user or config input into a Name
func ParseName(raw string) Name {
	return Name(strings.ToLower(strings.TrimSpace(raw)))
}

func (n Name) String() string {
	return string(n)
}

// Result is what a handler returns for one request
type Result struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Handler serves requests for one mode
type Handler interface {
	Handle(ctx context.Context, sessionID string, requestType string, payload map[string]interface{}) (*Result, error)
}

// ContextProvider is an optional capability. Handlers implementing it can save and restore
// their per-session state across mode switches. A nil export means nothing to save.
type ContextProvider interface {
	ExportContext(ctx context.Context, sessionID string) (json.RawMessage, error)
	RestoreContext(ctx context.Context, sessionID string, data json.RawMessage) error
}

// AsContextProvider reports whether h supports context save/restore
func AsContextProvider(h Handler) (ContextProvider, bool) {
	if h == nil {
		return nil, false
	}
	cp, ok := h.(ContextProvider)
	return cp, ok
}

// Request is one inbound user turn
type Request struct {
	SessionID    string
	UserInput    string
	ModeOverride string
	RequestType  string
	Payload      map[string]interface{}
	Timestamp    string
}

// Response is the envelope returned for every request
type Response struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"response,omitempty"`
	NewMode   Name                   `json:"new_mode"`
	SessionID string                 `json:"session_id"`
	Timestamp string                 `json:"timestamp"`

	// Err keeps the classified failure for callers; it is not serialized
	Err error `json:"-"`
}

// ErrorResponse builds a structured error envelope
func ErrorResponse(message string, err error) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
		Err:     err,
	}
}

// IsError reports whether the envelope carries a failure
func (r *Response) IsError() bool {
	return r == nil || r.Status != StatusSuccess
}
