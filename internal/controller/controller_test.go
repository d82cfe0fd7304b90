package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/intent"
	"ai-tutor-be/pkg/mode/modetest"
	"ai-tutor-be/pkg/mode/orchestrator"
	"ai-tutor-be/pkg/mode/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubContexts struct {
	*modetest.Persistence
	err error
}

func (s *stubContexts) GetContext(ctx context.Context, sessionId string) (*dto.LearningContextResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.LearningContextResponse{SessionId: sessionId, CurrentTopics: []string{"cells"}}, nil
}

func newTestApp(t *testing.T, contexts *stubContexts) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()
	names := []mode.Name{mode.Plan, mode.Learn, mode.Assess, mode.Review}
	registry := mode.NewRegistry(names, map[mode.Name]mode.Handler{
		mode.Plan:   modetest.NewHandler(mode.Plan),
		mode.Learn:  modetest.NewContextHandler(mode.Learn),
		mode.Assess: modetest.NewHandler(mode.Assess),
		mode.Review: modetest.NewContextHandler(mode.Review),
	})
	resolver, err := intent.NewResolver(registry, nil, intent.Config{
		Rules:        []intent.Rule{{Keywords: []string{"quiz"}, Mode: mode.Assess}},
		FallbackMode: mode.Learn,
	}, log)
	require.NoError(t, err)

	orch := orchestrator.New(orchestrator.Config{DefaultMode: mode.Learn}, registry, resolver,
		session.NewStore(time.Minute), contexts, nil, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewSessionController(orch, contexts).RegisterRoutes(api)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestSession_Create(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})

	code, body := doJSON(t, app, http.MethodPost, "/api/v1/session", "")

	assert.Equal(t, fiber.StatusCreated, code)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["session_id"])
	assert.Equal(t, "learn", data["default_mode"])
}

func TestSession_Interact(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})

	code, body := doJSON(t, app, http.MethodPost, "/api/v1/session/s1/interact",
		`{"user_input":"quiz me on cells","request_type":"generate_assessment","timestamp":"2024-05-01T10:00:00Z"}`)

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "assess", body["new_mode"])
	assert.Equal(t, "s1", body["session_id"])
	assert.Equal(t, "2024-05-01T10:00:00Z", body["timestamp"])
}

func TestSession_InteractOverride(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})

	_, body := doJSON(t, app, http.MethodPost, "/api/v1/session/s1/interact",
		`{"user_input":"quiz me","current_mode":"review","request_type":"get_suggestions"}`)

	assert.Equal(t, "review", body["new_mode"])
}

func TestSession_InteractRequiresUserInput(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})

	code, body := doJSON(t, app, http.MethodPost, "/api/v1/session/s1/interact", `{"request_type":"ask_question"}`)

	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestSession_InteractMissingRequestType(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})

	code, body := doJSON(t, app, http.MethodPost, "/api/v1/session/s1/interact", `{"user_input":"hello"}`)

	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "learn", body["new_mode"])
}

func TestSession_GetContext(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})
	doJSON(t, app, http.MethodPost, "/api/v1/session/s1/interact", `{"user_input":"quiz me","request_type":"x"}`)

	code, body := doJSON(t, app, http.MethodGet, "/api/v1/session/s1/context", "")

	assert.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "assess", data["active_mode"])
	lc := data["learning_context"].(map[string]interface{})
	assert.Equal(t, []interface{}{"cells"}, lc["current_topics"])
}

func TestSession_GetContextFailure(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence(), err: errors.New("db down")})

	code, _ := doJSON(t, app, http.MethodGet, "/api/v1/session/s1/context", "")

	assert.Equal(t, fiber.StatusInternalServerError, code)
}

func TestSession_GetModes(t *testing.T) {
	app := newTestApp(t, &stubContexts{Persistence: modetest.NewPersistence()})

	_, body := doJSON(t, app, http.MethodGet, "/api/v1/modes", "")

	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"assess", "learn", "plan", "review"}, data["modes"])
	assert.Equal(t, "learn", data["default_mode"])
	assert.Equal(t, "learn", data["fallback_mode"])
}
