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
	RequestAskQuestion    = "ask_question"
	RequestExplainTopic   = "explain_topic"
	RequestProvideExample = "provide_example"
	RequestNextStep       = "next_step"

	// learnerHistoryLimit is how many exchanges survive a mode switch
	learnerHistoryLimit = 5
)

type exchange struct {
	RequestType string `json:"request_type"`
	Input       string `json:"input"`
	Response    string `json:"response"`
}

type learnerContext struct {
	CurrentTopic string     `json:"current_topic,omitempty"`
	Recent       []exchange `json:"recent,omitempty"`
}

// Learner answers questions, explains topics and gives examples
type Learner struct {
	base
	states *states[learnerContext]
}

var (
	_ mode.Handler         = (*Learner)(nil)
	_ mode.ContextProvider = (*Learner)(nil)
)

// NewLearner creates the handler. Session state idle for longer than stateTTL is dropped.
func NewLearner(provider llm.LLMProvider, stateTTL time.Duration, log logger.ILogger) *Learner {
	return &Learner{
		base:   base{provider: provider, logger: log, module: "Learner"},
		states: newStates[learnerContext](stateTTL),
	}
}

func (l *Learner) Handle(ctx context.Context, sessionID, requestType string, payload map[string]interface{}) (*mode.Result, error) {
	state, _ := l.states.get(sessionID)
	history := formatHistory(state.Recent)

	var (
		prompt   string
		input    string
		topic    = state.CurrentTopic
		respType = "explanation"
	)

	switch requestType {
	case RequestAskQuestion:
		input = payloadString(payload, "text", "question")
		if input == "" {
			return invalid("text is required to ask a question"), nil
		}
		prompt = fmt.Sprintf(constant.LearnerAskQuestionPrompt, orNone(topic), history, input)
	case RequestExplainTopic, RequestProvideExample:
		topic = payloadString(payload, "topic", "topic_id")
		if topic == "" {
			return invalid("topic is required for " + requestType), nil
		}
		input = requestType + ": " + topic
		if requestType == RequestExplainTopic {
			prompt = fmt.Sprintf(constant.LearnerExplainTopicPrompt, topic, history)
		} else {
			prompt = fmt.Sprintf(constant.LearnerProvideExamplePrompt, topic, history)
			respType = "example"
		}
	case RequestNextStep:
		input = requestType
		prompt = fmt.Sprintf(constant.LearnerNextStepPrompt, orNone(topic), history)
		respType = "suggestion"
	default:
		return nil, l.unsupported(sessionID, requestType)
	}

	answer, err := l.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	l.states.update(sessionID, func(s learnerContext) learnerContext {
		s.CurrentTopic = topic
		s.Recent = append(s.Recent, exchange{RequestType: requestType, Input: input, Response: summarize(answer, 500)})
		if len(s.Recent) > learnerHistoryLimit {
			s.Recent = s.Recent[len(s.Recent)-learnerHistoryLimit:]
		}
		return s
	})

	data := map[string]interface{}{
		"type":    respType,
		"content": answer,
	}
	if topic != "" {
		data["topic"] = topic
	}
	return success(data), nil
}

func (l *Learner) ExportContext(_ context.Context, sessionID string) (json.RawMessage, error) {
	return l.states.export(sessionID)
}

func (l *Learner) RestoreContext(_ context.Context, sessionID string, data json.RawMessage) error {
	return l.states.restore(sessionID, data)
}

func formatHistory(recent []exchange) string {
	if len(recent) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, e := range recent {
		fmt.Fprintf(&sb, "- Learner: %s\n  Tutor: %s\n", e.Input, e.Response)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
