package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/dispatch"
	"ai-tutor-be/pkg/mode/intent"
	"ai-tutor-be/pkg/mode/session"
	"ai-tutor-be/pkg/mode/switcher"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const logModule = "Orchestrator"

var tracer = otel.Tracer("ai-tutor-be/orchestrator")

// ErrSessionRequired is returned for requests without a session id
var ErrSessionRequired = errors.New("session_id is required")

type Config struct {
	DefaultMode  mode.Name
	FallbackMode mode.Name
}

// Orchestrator is the single entry point for user turns. Requests for one session are
// serialized; requests for different sessions run in parallel.
type Orchestrator struct {
	registry    *mode.Registry
	resolver    *intent.Resolver
	store       *session.Store
	coordinator *switcher.Coordinator
	dispatcher  *dispatch.Dispatcher
	cfg         Config
	logger      logger.ILogger
}

// New wires the core. An unregistered default mode is replaced with the hard fallback,
// and an unset or unregistered fallback mode follows the default.
func New(
	cfg Config,
	registry *mode.Registry,
	resolver *intent.Resolver,
	store *session.Store,
	persistence session.Persistence,
	publisher switcher.EventPublisher,
	log logger.ILogger,
) *Orchestrator {
	if !registry.Has(cfg.DefaultMode) {
		log.Warn(logModule, "Default mode is not registered, using hard fallback", map[string]interface{}{
			"default_mode":  string(cfg.DefaultMode),
			"hard_fallback": string(mode.HardFallback),
		})
		cfg.DefaultMode = mode.HardFallback
	}
	if cfg.FallbackMode == "" || !registry.Has(cfg.FallbackMode) {
		cfg.FallbackMode = cfg.DefaultMode
	}
	for _, n := range registry.Unbound() {
		log.Warn(logModule, "Mode is registered without a handler", map[string]interface{}{"mode": string(n)})
	}

	coordinator := switcher.NewCoordinator(registry, persistence, publisher, log)
	return &Orchestrator{
		registry:    registry,
		resolver:    resolver,
		store:       store,
		coordinator: coordinator,
		dispatcher:  dispatch.NewDispatcher(registry, coordinator, cfg.FallbackMode, log),
		cfg:         cfg,
		logger:      log,
	}
}

// HandleRequest resolves, switches and dispatches one user turn. It never returns nil and
// never panics on collaborator failures; failures come back as error envelopes.
func (o *Orchestrator) HandleRequest(ctx context.Context, req mode.Request) *mode.Response {
	ctx, span := tracer.Start(ctx, "Orchestrator.HandleRequest")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.String("request.type", req.RequestType),
	)

	resp := o.handle(ctx, req)
	resp.Timestamp = timestamp(req.Timestamp)

	span.SetAttributes(attribute.String("mode.served", string(resp.NewMode)))
	if resp.Err != nil {
		span.RecordError(resp.Err)
		span.SetStatus(codes.Error, resp.Message)
	}
	return resp
}

func (o *Orchestrator) handle(ctx context.Context, req mode.Request) *mode.Response {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return mode.ErrorResponse("session_id is required.", ErrSessionRequired)
	}
	details := map[string]interface{}{"session_id": sessionID}

	unlock, err := o.store.Lock(ctx, sessionID)
	if err != nil {
		details["error"] = err.Error()
		o.logger.Warn(logModule, "Gave up waiting for session lock", details)
		resp := mode.ErrorResponse("The session is busy, please retry.", err)
		resp.SessionID = sessionID
		return resp
	}
	defer unlock()

	sess, ok := o.store.Get(sessionID)
	if !ok {
		sess = session.New(sessionID)
		if !o.coordinator.Resume(ctx, sess) {
			o.logger.Info(logModule, "Created session", details)
		}
	}
	loadedMode, loadedGood := sess.ActiveMode, sess.LastGoodMode

	current := sess.ActiveMode
	if sess.IsNew() {
		current = o.cfg.DefaultMode
	}

	decision := o.resolver.Resolve(ctx, intent.Input{
		SessionID: sessionID,
		Text:      req.UserInput,
		Override:  req.ModeOverride,
		Current:   current,
	})

	o.coordinator.SwitchTo(ctx, sess, decision.Mode, string(decision.Source))

	resp := o.dispatcher.Dispatch(ctx, sess, req)

	if errors.Is(resp.Err, mode.ErrConfiguration) {
		// Nothing could serve the request, so the session goes back to the last mode
		// that did rather than keeping a mode without a handler
		o.logger.Error(logModule, "No mode could serve the request, rolling back", map[string]interface{}{
			"session_id":     sessionID,
			"attempted_mode": string(sess.ActiveMode),
			"rollback_mode":  string(sess.LastGoodMode),
		})
		o.coordinator.SwitchTo(ctx, sess, sess.LastGoodMode, switcher.TriggerRollback)
		resp.NewMode = sess.ActiveMode
	} else {
		sess.LastGoodMode = sess.ActiveMode
	}

	if sess.ActiveMode != loadedMode || sess.LastGoodMode != loadedGood {
		o.coordinator.Checkpoint(ctx, sess)
	}
	o.store.Save(sess)
	return resp
}

// SessionState returns a copy of the live session, if any
func (o *Orchestrator) SessionState(sessionID string) (*session.Session, bool) {
	return o.store.Get(sessionID)
}

// Modes returns the registered mode names
func (o *Orchestrator) Modes() []mode.Name {
	return o.registry.Names()
}

// DefaultMode is the mode a new session starts in
func (o *Orchestrator) DefaultMode() mode.Name {
	return o.cfg.DefaultMode
}

// FallbackMode is the mode used when the active mode cannot be served
func (o *Orchestrator) FallbackMode() mode.Name {
	return o.cfg.FallbackMode
}

func timestamp(requested string) string {
	if requested != "" {
		return requested
	}
	return time.Now().UTC().Format(time.RFC3339)
}
