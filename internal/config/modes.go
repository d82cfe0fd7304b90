package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ai-tutor-be/internal/constant"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/intent"

	"gopkg.in/yaml.v3"
)

// ModesConfig is the mode routing configuration, read from a YAML file
type ModesConfig struct {
	Modes               []string          `yaml:"modes"`
	DefaultMode         string            `yaml:"default_mode"`
	DefaultFallbackMode string            `yaml:"default_fallback_mode"`
	IntentRecognition   IntentRecognition `yaml:"intent_recognition"`
}

type IntentRecognition struct {
	Rules []IntentRule `yaml:"rules"`
	LLM   IntentLLM    `yaml:"llm"`
}

type IntentRule struct {
	Keywords []string `yaml:"keywords"`
	Mode     string   `yaml:"mode"`
}

type IntentLLM struct {
	Enabled        bool   `yaml:"enabled"`
	PromptTemplate string `yaml:"prompt_template"`
}

// DefaultModes is used when no modes file exists. An existing file is never merged with it.
func DefaultModes() *ModesConfig {
	return &ModesConfig{
		Modes:               []string{"plan", "learn", "assess", "review"},
		DefaultMode:         "learn",
		DefaultFallbackMode: "learn",
		IntentRecognition: IntentRecognition{
			Rules: []IntentRule{
				{Keywords: []string{"plan", "schedule", "goal"}, Mode: "plan"},
				{Keywords: []string{"quiz", "test me", "assess", "exam question"}, Mode: "assess"},
				{Keywords: []string{"review", "revise", "go over"}, Mode: "review"},
				{Keywords: []string{"explain", "what is", "how does", "example"}, Mode: "learn"},
			},
			LLM: IntentLLM{
				Enabled:        false,
				PromptTemplate: constant.DefaultIntentPromptTemplate,
			},
		},
	}
}

// LoadModes reads the modes file at path. When appEnv is set, <name>.<appEnv>.yaml next to
// it is applied on top: keys present in the overlay replace the base values, lists included.
// DEFAULT_MODE and INTENT_LLM_ENABLED override both files.
func LoadModes(path, appEnv string) (*ModesConfig, error) {
	cfg := &ModesConfig{}

	found, err := decodeInto(path, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Printf("Note: modes file %s not found, using built-in modes", path)
		cfg = DefaultModes()
	}

	if appEnv != "" {
		if _, err := decodeInto(overlayPath(path, appEnv), cfg); err != nil {
			return nil, err
		}
	}

	if v, ok := os.LookupEnv("DEFAULT_MODE"); ok && strings.TrimSpace(v) != "" {
		cfg.DefaultMode = v
	}
	if v, ok := os.LookupEnv("INTENT_LLM_ENABLED"); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.IntentRecognition.LLM.Enabled = enabled
		}
	}

	if len(cfg.Names()) == 0 {
		return nil, fmt.Errorf("modes config %s: no modes defined", path)
	}
	return cfg, nil
}

func decodeInto(path string, cfg *ModesConfig) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read modes config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parse modes config %s: %w", path, err)
	}
	return true, nil
}

// overlayPath turns config/modes.yaml into config/modes.<env>.yaml
func overlayPath(path, appEnv string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + appEnv + ext
}

// Names returns the configured modes, normalized, without blanks or duplicates
func (c *ModesConfig) Names() []mode.Name {
	seen := make(map[mode.Name]bool, len(c.Modes))
	var out []mode.Name
	for _, raw := range c.Modes {
		n := mode.ParseName(raw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func (c *ModesConfig) Default() mode.Name {
	return mode.ParseName(c.DefaultMode)
}

// Fallback is default_fallback_mode, or the default mode when unset
func (c *ModesConfig) Fallback() mode.Name {
	if f := mode.ParseName(c.DefaultFallbackMode); f != "" {
		return f
	}
	return c.Default()
}

// ResolverConfig converts the intent section for the resolver
func (c *ModesConfig) ResolverConfig() intent.Config {
	rules := make([]intent.Rule, 0, len(c.IntentRecognition.Rules))
	for _, r := range c.IntentRecognition.Rules {
		rules = append(rules, intent.Rule{Keywords: r.Keywords, Mode: mode.ParseName(r.Mode)})
	}
	return intent.Config{
		Rules:             rules,
		FallbackMode:      c.Fallback(),
		ClassifierEnabled: c.IntentRecognition.LLM.Enabled,
		PromptTemplate:    c.IntentRecognition.LLM.PromptTemplate,
	}
}
