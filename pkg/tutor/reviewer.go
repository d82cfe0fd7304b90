package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/mode"
)

const (
	RequestGetSuggestions  = "get_suggestions"
	RequestProvideMaterial = "provide_material"

	defaultMaxSuggestions = 5
)

type reviewerContext struct {
	Topics          []string `json:"topics,omitempty"`
	LastSuggestions []string `json:"last_suggestions,omitempty"`
}

// Reviewer suggests what to revisit and prepares review material
type Reviewer struct {
	base
	states *states[reviewerContext]
}

var (
	_ mode.Handler         = (*Reviewer)(nil)
	_ mode.ContextProvider = (*Reviewer)(nil)
)

// NewReviewer creates the handler. Session state idle for longer than stateTTL is dropped.
func NewReviewer(provider llm.LLMProvider, stateTTL time.Duration, log logger.ILogger) *Reviewer {
	return &Reviewer{
		base:   base{provider: provider, logger: log, module: "Reviewer"},
		states: newStates[reviewerContext](stateTTL),
	}
}

func (r *Reviewer) Handle(ctx context.Context, sessionID, requestType string, payload map[string]interface{}) (*mode.Result, error) {
	switch requestType {
	case RequestGetSuggestions:
		return r.suggestions(ctx, sessionID, payload)
	case RequestProvideMaterial:
		return r.material(ctx, sessionID, payload)
	default:
		return nil, r.unsupported(sessionID, requestType)
	}
}

func (r *Reviewer) suggestions(ctx context.Context, sessionID string, payload map[string]interface{}) (*mode.Result, error) {
	maxItems := payloadInt(payload, "max_items", defaultMaxSuggestions)
	state, _ := r.states.get(sessionID)
	topics := append(payloadStrings(payload, "topics"), state.Topics...)

	out, err := r.ask(ctx, fmt.Sprintf(constant.ReviewerSuggestionsPrompt,
		orNone(strings.Join(topics, ", ")), orNone(strings.Join(state.LastSuggestions, "; ")), maxItems))
	if err != nil {
		return nil, err
	}

	items := splitLines(out, maxItems)
	r.states.update(sessionID, func(s reviewerContext) reviewerContext {
		s.LastSuggestions = items
		return s
	})

	return success(map[string]interface{}{
		"type":        "review_suggestions",
		"suggestions": items,
	}), nil
}

func (r *Reviewer) material(ctx context.Context, sessionID string, payload map[string]interface{}) (*mode.Result, error) {
	topic := payloadString(payload, "knowledge_point_id", "topic", "text")
	if topic == "" {
		return invalid("knowledge_point_id or topic is required"), nil
	}

	out, err := r.ask(ctx, fmt.Sprintf(constant.ReviewerMaterialPrompt, topic), llm.WithMaxTokens(800))
	if err != nil {
		return nil, err
	}

	r.states.update(sessionID, func(s reviewerContext) reviewerContext {
		for _, t := range s.Topics {
			if t == topic {
				return s
			}
		}
		s.Topics = append(s.Topics, topic)
		return s
	})

	return success(map[string]interface{}{
		"type":     "review_material",
		"topic":    topic,
		"material": out,
	}), nil
}

func (r *Reviewer) ExportContext(_ context.Context, sessionID string) (json.RawMessage, error) {
	return r.states.export(sessionID)
}

func (r *Reviewer) RestoreContext(_ context.Context, sessionID string, data json.RawMessage) error {
	return r.states.restore(sessionID, data)
}

// splitLines returns up to max non-empty lines with list markers removed
func splitLines(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.) "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
