package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/mode"
)

const RequestGeneratePlan = "generate_plan"

type plannerContext struct {
	LastGoal    string `json:"last_goal"`
	Timeframe   string `json:"timeframe,omitempty"`
	PlanSummary string `json:"plan_summary,omitempty"`
}

// Planner builds study plans
type Planner struct {
	base
	states *states[plannerContext]
}

var (
	_ mode.Handler         = (*Planner)(nil)
	_ mode.ContextProvider = (*Planner)(nil)
)

// NewPlanner creates the handler. Session state idle for longer than stateTTL is dropped.
func NewPlanner(provider llm.LLMProvider, stateTTL time.Duration, log logger.ILogger) *Planner {
	return &Planner{
		base:   base{provider: provider, logger: log, module: "Planner"},
		states: newStates[plannerContext](stateTTL),
	}
}

func (p *Planner) Handle(ctx context.Context, sessionID, requestType string, payload map[string]interface{}) (*mode.Result, error) {
	switch requestType {
	case RequestGeneratePlan:
		return p.generatePlan(ctx, sessionID, payload)
	default:
		return nil, p.unsupported(sessionID, requestType)
	}
}

func (p *Planner) generatePlan(ctx context.Context, sessionID string, payload map[string]interface{}) (*mode.Result, error) {
	goal := payloadString(payload, "goal", "text")
	if goal == "" {
		return invalid("goal is required to generate a plan"), nil
	}
	timeframe := payloadString(payload, "timeframe")
	if timeframe == "" {
		timeframe = "not specified"
	}
	previous, _ := p.states.get(sessionID)

	plan, err := p.ask(ctx, fmt.Sprintf(constant.PlannerGeneratePlanPrompt, goal, timeframe, previous.LastGoal))
	if err != nil {
		return nil, err
	}

	p.states.set(sessionID, plannerContext{
		LastGoal:    goal,
		Timeframe:   timeframe,
		PlanSummary: summarize(plan, 280),
	})
	p.logger.Info(p.module, "Generated study plan", map[string]interface{}{"session_id": sessionID})

	return success(map[string]interface{}{
		"type": "study_plan",
		"goal": goal,
		"plan": plan,
	}), nil
}

func (p *Planner) ExportContext(_ context.Context, sessionID string) (json.RawMessage, error) {
	return p.states.export(sessionID)
}

func (p *Planner) RestoreContext(_ context.Context, sessionID string, data json.RawMessage) error {
	return p.states.restore(sessionID, data)
}

func summarize(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
