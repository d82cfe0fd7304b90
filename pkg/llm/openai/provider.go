package openai

import (
	"ai-tutor-be/pkg/llm"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrEmptyContent = errors.New("openai response missing content")

// RetryPolicy controls how transient failures are retried
type RetryPolicy struct {
	Attempts    int
	Delay       time.Duration
	StatusCodes []int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    3,
		Delay:       5 * time.Second,
		StatusCodes: []int{429, 500, 502, 503, 504},
	}
}

// Provider talks to any OpenAI compatible chat completions endpoint
type Provider struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	retry     RetryPolicy
	client    *http.Client
}

var _ llm.LLMProvider = &Provider{}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewProvider(apiKey, baseURL, model string, timeout time.Duration, retry RetryPolicy) *Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if retry.Attempts <= 0 {
		retry.Attempts = 1
	}
	return &Provider{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: 1024,
		retry:     retry,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model, MaxTokens: p.maxTokens}, options...)

	jsonData, err := json.Marshal(chatRequest{
		Model:       opts.Model,
		Messages:    history,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.TemperatureOr(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.retry.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(p.retry.Delay):
			}
		}

		content, retryable, err := p.do(ctx, jsonData)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("openai request failed after %d attempts: %w", p.retry.Attempts, lastErr)
}

// do performs one round trip and reports whether a failure is worth retrying
func (p *Provider) do(ctx context.Context, body []byte) (string, bool, error) {
	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("openai api error (status %d): %s", resp.StatusCode, string(bodyBytes))
		return "", p.retryableStatus(resp.StatusCode), err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", false, fmt.Errorf("openai api returned error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", false, ErrEmptyContent
	}
	return chatResp.Choices[0].Message.Content, false, nil
}

func (p *Provider) retryableStatus(code int) bool {
	for _, c := range p.retry.StatusCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
