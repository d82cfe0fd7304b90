package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/mode"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	RequestGenerateAssessment = "generate_assessment"
	RequestSubmitAssessment   = "submit_assessment"

	defaultQuestionType  = "multiple_choice"
	defaultDifficulty    = "medium"
	defaultQuestionCount = 3
	maxQuestionCount     = 20
)

type assessment struct {
	SessionID string
	Topic     string
	Questions string
	CreatedAt time.Time
}

// Assessor generates quizzes and grades submissions. It keeps no context across mode
// switches: an open assessment is addressed by its id, not by the session's mode state.
// Assessments left unsubmitted expire after the state ttl.
type Assessor struct {
	base
	assessments *cache.Cache
}

var _ mode.Handler = (*Assessor)(nil)

func NewAssessor(provider llm.LLMProvider, stateTTL time.Duration, log logger.ILogger) *Assessor {
	return &Assessor{
		base:        base{provider: provider, logger: log, module: "Assessor"},
		assessments: newSessionCache(stateTTL),
	}
}

func (a *Assessor) Handle(ctx context.Context, sessionID, requestType string, payload map[string]interface{}) (*mode.Result, error) {
	switch requestType {
	case RequestGenerateAssessment:
		return a.generate(ctx, sessionID, payload)
	case RequestSubmitAssessment:
		return a.submit(ctx, sessionID, payload)
	default:
		return nil, a.unsupported(sessionID, requestType)
	}
}

func (a *Assessor) generate(ctx context.Context, sessionID string, payload map[string]interface{}) (*mode.Result, error) {
	topic := payloadString(payload, "topic", "text")
	if ids := payloadStrings(payload, "knowledge_point_ids"); len(ids) > 0 {
		topic = strings.Join(ids, ", ")
	}
	if topic == "" {
		return invalid("topic or knowledge_point_ids is required to generate an assessment"), nil
	}
	kind := payloadString(payload, "assessment_type")
	if kind == "" {
		kind = defaultQuestionType
	}
	difficulty := payloadString(payload, "difficulty")
	if difficulty == "" {
		difficulty = defaultDifficulty
	}
	count := payloadInt(payload, "count", defaultQuestionCount)
	if count > maxQuestionCount {
		count = maxQuestionCount
	}

	questions, err := a.ask(ctx,
		fmt.Sprintf(constant.AssessorGeneratePrompt, count, strings.ReplaceAll(kind, "_", " "), difficulty, topic),
		llm.WithTemperature(0.4),
	)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	a.assessments.Set(id, assessment{SessionID: sessionID, Topic: topic, Questions: questions, CreatedAt: time.Now().UTC()}, cache.DefaultExpiration)

	a.logger.Info(a.module, "Generated assessment", map[string]interface{}{
		"session_id":    sessionID,
		"assessment_id": id,
		"count":         count,
	})

	return success(map[string]interface{}{
		"type":          "assessment",
		"assessment_id": id,
		"topic":         topic,
		"difficulty":    difficulty,
		"questions":     questions,
	}), nil
}

func (a *Assessor) submit(ctx context.Context, sessionID string, payload map[string]interface{}) (*mode.Result, error) {
	id := payloadString(payload, "assessment_id")
	if id == "" {
		return invalid("assessment_id is required"), nil
	}

	x, found := a.assessments.Get(id)
	pending, ok := x.(assessment)
	if !found || !ok || pending.SessionID != sessionID {
		return invalid(fmt.Sprintf("assessment %s not found", id)), nil
	}

	answers := payloadStrings(payload, "answers")
	if len(answers) == 0 {
		return invalid("answers are required"), nil
	}
	var numbered strings.Builder
	for i, ans := range answers {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, ans)
	}

	feedback, err := a.ask(ctx, fmt.Sprintf(constant.AssessorGradePrompt, pending.Questions, numbered.String()), llm.WithTemperature(0))
	if err != nil {
		return nil, err
	}

	a.assessments.Delete(id)

	return success(map[string]interface{}{
		"type":          "assessment_result",
		"assessment_id": id,
		"topic":         pending.Topic,
		"feedback":      feedback,
		"score":         parseScore(feedback),
	}), nil
}

// parseScore reads the "SCORE: x/y" line; empty when the model left it out
func parseScore(feedback string) string {
	for _, line := range strings.Split(feedback, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 6 && strings.EqualFold(line[:6], "score:") {
			return strings.TrimSpace(line[6:])
		}
	}
	return ""
}
