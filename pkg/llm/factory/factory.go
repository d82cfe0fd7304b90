package factory

import (
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/llm/ollama"
	"ai-tutor-be/pkg/llm/openai"
	"fmt"
	"time"
)

// Settings carries what any provider may need; each provider reads its own subset
type Settings struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RetryPolicy openai.RetryPolicy
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Model, s.Timeout), nil
	case "openai":
		if s.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires LLM_API_KEY")
		}
		return openai.NewProvider(s.APIKey, s.BaseURL, s.Model, s.Timeout, s.RetryPolicy), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
