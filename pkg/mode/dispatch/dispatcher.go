package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/session"
	"ai-tutor-be/pkg/mode/switcher"
)

const logModule = "Dispatcher"

// TriggerFallback marks switches made because the active mode had no handler
const TriggerFallback = "fallback"

// Dispatcher routes a request to the handler of the session's active mode
type Dispatcher struct {
	registry     *mode.Registry
	coordinator  *switcher.Coordinator
	fallbackMode mode.Name
	logger       logger.ILogger
}

func NewDispatcher(registry *mode.Registry, coordinator *switcher.Coordinator, fallbackMode mode.Name, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		coordinator:  coordinator,
		fallbackMode: fallbackMode,
		logger:       log,
	}
}

// Dispatch always returns an envelope stamped with the post-dispatch mode and session id.
// The caller must hold the session lock.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, req mode.Request) *mode.Response {
	resp := d.dispatch(ctx, sess, req)
	resp.NewMode = sess.ActiveMode
	resp.SessionID = sess.ID
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, sess *session.Session, req mode.Request) *mode.Response {
	details := map[string]interface{}{
		"session_id": sess.ID,
		"mode":       string(sess.ActiveMode),
	}

	// 1-2. Resolve the handler, with exactly one fallback attempt
	handler, ok := d.registry.Handler(sess.ActiveMode)
	if !ok {
		d.logger.Warn(logModule, "No handler for active mode, trying fallback mode", withFallback(details, d.fallbackMode))

		handler, ok = d.registry.Handler(d.fallbackMode)
		if !ok || d.fallbackMode == sess.ActiveMode {
			err := fmt.Errorf("%w: no handler for mode %q or fallback mode %q", mode.ErrConfiguration, sess.ActiveMode, d.fallbackMode)
			d.logger.Error(logModule, "Fallback mode has no handler either", withError(details, err))
			return mode.ErrorResponse("Configuration error: no mode handler is available.", err)
		}
		d.coordinator.SwitchTo(ctx, sess, d.fallbackMode, TriggerFallback)
		details["mode"] = string(sess.ActiveMode)
	}

	// 3. Routing precondition
	if strings.TrimSpace(req.RequestType) == "" {
		d.logger.Error(logModule, "Request has no request_type, handler not invoked", details)
		return mode.ErrorResponse("Routing error: request_type is required.", mode.ErrMissingRequestType)
	}

	// 4. Invoke
	details["request_type"] = req.RequestType
	result, err := safeHandle(ctx, handler, sess.ID, req.RequestType, req.Payload)
	switch {
	case errors.Is(err, mode.ErrUnsupportedRequest):
		d.logger.Error(logModule, "Handler does not support request type", withError(details, err))
		return mode.ErrorResponse(
			fmt.Sprintf("Configuration error: mode '%s' cannot handle request type '%s'.", sess.ActiveMode, req.RequestType),
			err,
		)
	case err != nil:
		d.logger.Error(logModule, "Handler failed", withError(details, err))
		return mode.ErrorResponse(fmt.Sprintf("An error occurred in %s mode.", sess.ActiveMode), err)
	case result == nil:
		err := fmt.Errorf("handler for mode %q returned no result", sess.ActiveMode)
		d.logger.Error(logModule, "Handler returned nothing", withError(details, err))
		return mode.ErrorResponse(fmt.Sprintf("An error occurred in %s mode.", sess.ActiveMode), err)
	}

	return fromResult(result)
}

// fromResult passes business errors through as-is; they are not dispatch failures
func fromResult(result *mode.Result) *mode.Response {
	status := result.Status
	if status == "" {
		status = mode.StatusSuccess
	}
	return &mode.Response{
		Status:  status,
		Message: result.Message,
		Data:    result.Data,
	}
}

func safeHandle(ctx context.Context, h mode.Handler, sessionID, requestType string, payload map[string]interface{}) (result *mode.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return h.Handle(ctx, sessionID, requestType, payload)
}

func withError(details map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

func withFallback(details map[string]interface{}, fallback mode.Name) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["fallback_mode"] = string(fallback)
	return out
}
