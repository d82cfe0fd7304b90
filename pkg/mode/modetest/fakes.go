// Package modetest provides in-memory collaborators for testing the mode machinery.
package modetest

import (
	"context"
	"encoding/json"
	"sync"

	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/session"
)

// Call records one Handle invocation
type Call struct {
	SessionID   string
	RequestType string
	Payload     map[string]interface{}
}

// Handler is a scripted mode.Handler without context support
type Handler struct {
	Name mode.Name

	mu     sync.Mutex
	calls  []Call
	result *mode.Result
	err    error
	panic  interface{}
}

func NewHandler(name mode.Name) *Handler {
	return &Handler{Name: name}
}

// Returns scripts the next Handle outcome
func (h *Handler) Returns(result *mode.Result, err error) *Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result, h.err = result, err
	return h
}

// Panics makes Handle panic with v
func (h *Handler) Panics(v interface{}) *Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panic = v
	return h
}

func (h *Handler) Handle(_ context.Context, sessionID, requestType string, payload map[string]interface{}) (*mode.Result, error) {
	h.mu.Lock()
	h.calls = append(h.calls, Call{SessionID: sessionID, RequestType: requestType, Payload: payload})
	result, err, p := h.result, h.err, h.panic
	h.mu.Unlock()

	if p != nil {
		panic(p)
	}
	if result == nil && err == nil {
		return &mode.Result{
			Status: mode.StatusSuccess,
			Data:   map[string]interface{}{"handled_by": string(h.Name)},
		}, nil
	}
	return result, err
}

func (h *Handler) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// ContextHandler is a Handler that also keeps a per-session string state it can export
// and restore. The state is set by requests whose payload carries "state".
type ContextHandler struct {
	*Handler

	mu          sync.Mutex
	state       map[string]string
	exports     int
	restores    int
	exportErr   error
	restoreErr  error
	exportPanic bool
}

func NewContextHandler(name mode.Name) *ContextHandler {
	return &ContextHandler{Handler: NewHandler(name), state: make(map[string]string)}
}

func (h *ContextHandler) Handle(ctx context.Context, sessionID, requestType string, payload map[string]interface{}) (*mode.Result, error) {
	if s, ok := payload["state"].(string); ok {
		h.SetState(sessionID, s)
	}
	return h.Handler.Handle(ctx, sessionID, requestType, payload)
}

func (h *ContextHandler) SetState(sessionID, state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state[sessionID] = state
}

func (h *ContextHandler) State(sessionID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state[sessionID]
}

// Reset forgets every session's state, like a freshly constructed handler
func (h *ContextHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = make(map[string]string)
}

func (h *ContextHandler) FailExport(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exportErr = err
}

func (h *ContextHandler) PanicOnExport() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exportPanic = true
}

func (h *ContextHandler) FailRestore(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restoreErr = err
}

func (h *ContextHandler) Exports() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exports
}

func (h *ContextHandler) Restores() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.restores
}

func (h *ContextHandler) ExportContext(_ context.Context, sessionID string) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exports++
	if h.exportPanic {
		panic("export exploded")
	}
	if h.exportErr != nil {
		return nil, h.exportErr
	}
	s, ok := h.state[sessionID]
	if !ok {
		return nil, nil
	}
	return json.Marshal(map[string]string{"state": s})
}

func (h *ContextHandler) RestoreContext(_ context.Context, sessionID string, data json.RawMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restores++
	if h.restoreErr != nil {
		return h.restoreErr
	}
	var v struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	h.state[sessionID] = v.State
	return nil
}

// Persistence is an in-memory session.Persistence with failure injection
type Persistence struct {
	mu      sync.Mutex
	records map[string]*session.Record
	getErr  error
	saveErr error
	gets    int
	saves   int
}

func NewPersistence() *Persistence {
	return &Persistence{records: make(map[string]*session.Record)}
}

func (p *Persistence) FailGet(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getErr = err
}

func (p *Persistence) FailSave(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErr = err
}

// Put seeds a record as if written by another component
func (p *Persistence) Put(record *session.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[record.SessionID] = copyRecord(record)
}

func (p *Persistence) Record(sessionID string) (*session.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[sessionID]
	if !ok {
		return nil, false
	}
	return copyRecord(r), true
}

func (p *Persistence) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func (p *Persistence) GetSessionContext(_ context.Context, sessionID string) (*session.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	if p.getErr != nil {
		return nil, p.getErr
	}
	r, ok := p.records[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return copyRecord(r), nil
}

func (p *Persistence) SaveSessionContext(_ context.Context, record *session.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.records[record.SessionID] = copyRecord(record)
	return nil
}

func copyRecord(r *session.Record) *session.Record {
	out := &session.Record{
		SessionID:    r.SessionID,
		ActiveMode:   r.ActiveMode,
		LastGoodMode: r.LastGoodMode,
		ModeContexts: session.CloneContexts(r.ModeContexts),
		Extra:        make(map[string]interface{}, len(r.Extra)),
	}
	for k, v := range r.Extra {
		out.Extra[k] = v
	}
	return out
}

// Publisher records published events
type Publisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *Publisher) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *Publisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *Publisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}
