package intent

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/mode"
)

const logModule = "IntentResolver"

// Source records which step of the decision order produced the mode
type Source string

const (
	SourceOverride   Source = "override"
	SourceRule       Source = "rule"
	SourceClassifier Source = "classifier"
	SourceCurrent    Source = "current"
	SourceDefault    Source = "default"
)

// Rule maps keywords to a mode. Rules are evaluated in configured order.
type Rule struct {
	Keywords []string
	Mode     mode.Name
}

// Matches reports whether any keyword is a case-insensitive substring of text
func (r Rule) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range r.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Config is the resolver's slice of the mode configuration
type Config struct {
	Rules             []Rule
	FallbackMode      mode.Name
	ClassifierEnabled bool
	PromptTemplate    string
}

// Input is everything the resolver looks at for one request
type Input struct {
	SessionID string
	Text      string
	Override  string
	Current   mode.Name
}

// Decision is the resolved target mode and the step that chose it
type Decision struct {
	Mode   mode.Name
	Source Source
}

type promptData struct {
	UserInput   string
	CurrentMode string
}

// Resolver picks the mode that should serve a request. It holds no mutable state.
type Resolver struct {
	registry   *mode.Registry
	classifier Classifier
	cfg        Config
	tmpl       *template.Template
	logger     logger.ILogger
}

// NewResolver creates a resolver. An invalid prompt template is reported here, at startup,
// rather than on every request.
func NewResolver(registry *mode.Registry, classifier Classifier, cfg Config, log logger.ILogger) (*Resolver, error) {
	r := &Resolver{
		registry:   registry,
		classifier: classifier,
		cfg:        cfg,
		logger:     log,
	}
	if strings.TrimSpace(cfg.PromptTemplate) != "" {
		tmpl, err := template.New("intent").Option("missingkey=zero").Parse(cfg.PromptTemplate)
		if err != nil {
			return nil, fmt.Errorf("parse intent prompt template: %w", err)
		}
		r.tmpl = tmpl
	}
	return r, nil
}

// Resolve applies the decision order: override, keyword rules, classifier, current mode,
// configured fallback, hard fallback. The first applicable step wins.
func (r *Resolver) Resolve(ctx context.Context, in Input) Decision {
	details := map[string]interface{}{"session_id": in.SessionID}

	// 1. Explicit override
	if in.Override != "" {
		override := mode.ParseName(in.Override)
		if r.registry.Has(override) {
			r.logger.Info(logModule, "Mode determined by override", withMode(details, override))
			return Decision{Mode: override, Source: SourceOverride}
		}
		r.logger.Warn(logModule, "Ignoring override for unregistered mode", withMode(details, override))
	}

	// 2. Keyword rules
	for _, rule := range r.cfg.Rules {
		if !rule.Matches(in.Text) {
			continue
		}
		if r.registry.Has(rule.Mode) {
			d := withMode(details, rule.Mode)
			d["keywords"] = rule.Keywords
			r.logger.Info(logModule, "Mode determined by rule", d)
			return Decision{Mode: rule.Mode, Source: SourceRule}
		}
		r.logger.Warn(logModule, "Rule matched an unregistered mode, skipping", withMode(details, rule.Mode))
	}

	// 3. Language-model classification
	if classified, ok := r.classify(ctx, in); ok {
		r.logger.Info(logModule, "Mode determined by classifier", withMode(details, classified))
		return Decision{Mode: classified, Source: SourceClassifier}
	}

	// 4. Stay where we are
	if r.registry.Has(in.Current) {
		r.logger.Debug(logModule, "No intent matched, staying in current mode", withMode(details, in.Current))
		return Decision{Mode: in.Current, Source: SourceCurrent}
	}

	// 5. Configured fallback, then the hard fallback
	fallback := r.cfg.FallbackMode
	if !r.registry.Has(fallback) {
		fallback = mode.HardFallback
	}
	r.logger.Info(logModule, "No intent matched and current mode invalid, using fallback", withMode(details, fallback))
	return Decision{Mode: fallback, Source: SourceDefault}
}

// classify never fails the resolution. Every problem is logged and reported as no result.
func (r *Resolver) classify(ctx context.Context, in Input) (mode.Name, bool) {
	if !r.cfg.ClassifierEnabled || r.classifier == nil {
		return "", false
	}
	details := map[string]interface{}{"session_id": in.SessionID}
	if r.tmpl == nil {
		r.logger.Warn(logModule, "Classifier enabled but no prompt_template configured", details)
		return "", false
	}

	var prompt strings.Builder
	if err := r.tmpl.Execute(&prompt, promptData{UserInput: in.Text, CurrentMode: string(in.Current)}); err != nil {
		details["error"] = err.Error()
		r.logger.Error(logModule, "Failed to render classifier prompt", details)
		return "", false
	}

	result, err := safeClassify(ctx, r.classifier, prompt.String())
	if err != nil {
		details["error"] = err.Error()
		r.logger.Error(logModule, "Error during classifier intent recognition", details)
		return "", false
	}
	if result.Status != StatusSuccess {
		details["status"] = result.Status
		details["message"] = result.Text
		r.logger.Warn(logModule, "Classifier returned a non-success status", details)
		return "", false
	}

	name := ParseLabel(result.Text)
	if !r.registry.Has(name) {
		details["output"] = result.Text
		r.logger.Warn(logModule, "Classifier returned an unmatchable mode, falling back", details)
		return "", false
	}
	return name, true
}

func withMode(details map[string]interface{}, m mode.Name) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["mode"] = string(m)
	return out
}
