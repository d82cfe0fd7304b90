// Package tutor holds the language-model backed handlers for each tutoring mode.
package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/mode"

	"github.com/patrickmn/go-cache"
)

// base is shared by every handler: the model, the logger and the log module name
type base struct {
	provider llm.LLMProvider
	logger   logger.ILogger
	module   string
}

func (b *base) ask(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	history := []llm.Message{
		{Role: constant.TutorRoleSystem, Content: constant.TutorSystemPrompt},
		{Role: constant.TutorRoleUser, Content: prompt},
	}
	out, err := b.provider.Chat(ctx, history, opts...)
	if err != nil {
		return "", fmt.Errorf("%s llm call: %w", strings.ToLower(b.module), err)
	}
	return strings.TrimSpace(out), nil
}

func (b *base) unsupported(sessionID, requestType string) error {
	b.logger.Warn(b.module, "Unsupported request type", map[string]interface{}{
		"session_id":   sessionID,
		"request_type": requestType,
	})
	return fmt.Errorf("%w: %s", mode.ErrUnsupportedRequest, requestType)
}

func success(data map[string]interface{}) *mode.Result {
	return &mode.Result{Status: mode.StatusSuccess, Data: data}
}

// invalid is a business error: the request reached the right mode but cannot be served
func invalid(message string) *mode.Result {
	return &mode.Result{Status: mode.StatusError, Message: message}
}

func payloadString(payload map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// payloadInt accepts JSON numbers (float64) and ints
func payloadInt(payload map[string]interface{}, key string, def int) int {
	switch v := payload[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

func payloadStrings(payload map[string]interface{}, key string) []string {
	raw, ok := payload[key].([]interface{})
	if !ok {
		if s, ok := payload[key].([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DefaultStateTTL is how long a handler keeps an idle session's state
const DefaultStateTTL = time.Hour

// states keeps one value per session and forgets sessions idle for longer than its ttl.
// Handlers are shared by every session, so nothing session-specific may live on the
// handler itself.
type states[T any] struct {
	mu    sync.Mutex
	items *cache.Cache
}

func newStates[T any](ttl time.Duration) *states[T] {
	return &states[T]{items: newSessionCache(ttl)}
}

// newSessionCache returns a cache whose entries expire ttl after their last write
func newSessionCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	cleanup := ttl
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return cache.New(ttl, cleanup)
}

func (s *states[T]) get(sessionID string) (T, bool) {
	if x, found := s.items.Get(sessionID); found {
		return x.(T), true
	}
	var zero T
	return zero, false
}

func (s *states[T]) update(sessionID string, fn func(v T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.get(sessionID)
	s.items.Set(sessionID, fn(v), cache.DefaultExpiration)
}

func (s *states[T]) set(sessionID string, v T) {
	s.update(sessionID, func(T) T { return v })
}

// count includes expired entries the janitor has not removed yet
func (s *states[T]) count() int {
	return s.items.ItemCount()
}

// export marshals the session's state; nil when the session has none
func (s *states[T]) export(sessionID string) (json.RawMessage, error) {
	v, ok := s.get(sessionID)
	if !ok {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *states[T]) restore(sessionID string, data json.RawMessage) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode mode context: %w", err)
	}
	s.set(sessionID, v)
	return nil
}
