package intent

import (
	"context"
	"fmt"
	"strings"

	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/mode"
)

// Classification status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Classification is the raw answer of a classifier
type Classification struct {
	Status string
	Text   string
}

// Classifier maps a rendered prompt to a single mode label
type Classifier interface {
	Classify(ctx context.Context, prompt string) Classification
}

// LLMClassifier asks a language model for the mode label
type LLMClassifier struct {
	provider llm.LLMProvider
}

func NewLLMClassifier(provider llm.LLMProvider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

func (c *LLMClassifier) Classify(ctx context.Context, prompt string) Classification {
	if c.provider == nil {
		return Classification{Status: StatusError, Text: "no language model configured"}
	}
	text, err := c.provider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithMaxTokens(16))
	if err != nil {
		return Classification{Status: StatusError, Text: err.Error()}
	}
	return Classification{Status: StatusSuccess, Text: text}
}

// ParseLabel normalizes model output into a mode name. Surrounding quotes and trailing
// punctuation are dropped; anything longer than one word is kept as-is and will not match.
func ParseLabel(text string) mode.Name {
	label := strings.TrimSpace(text)
	label = strings.Trim(label, "\"'`.!: \t\r\n")
	return mode.ParseName(label)
}

// safeClassify contains a panicking classifier so resolution can continue
func safeClassify(ctx context.Context, c Classifier, prompt string) (result Classification, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("classifier panic: %v", rec)
		}
	}()
	return c.Classify(ctx, prompt), nil
}
