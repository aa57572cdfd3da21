package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ProviderType identifies which completion backend to use.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// DefaultOllamaURL is where a local Ollama daemon listens.
const DefaultOllamaURL = "http://localhost:11434"

// Config holds configuration for the completion provider.
type Config struct {
	// Provider type: "openai" or "ollama"
	Provider ProviderType `envconfig:"LLM_PROVIDER" default:"openai"`

	APIKey  string `envconfig:"OPENAI_API_KEY"`
	BaseURL string `envconfig:"LLM_BASE_URL"`
	Model   string `envconfig:"LLM_MODEL" default:"gpt-4o"`

	Temperature      float32 `envconfig:"LLM_TEMPERATURE" default:"0.9"`
	MaxTokens        int     `envconfig:"LLM_MAX_TOKENS" default:"1000"`
	PresencePenalty  float32 `envconfig:"LLM_PRESENCE_PENALTY" default:"0.6"`
	FrequencyPenalty float32 `envconfig:"LLM_FREQUENCY_PENALTY" default:"0.6"`

	// Per-attempt timeout, attempt budget and base backoff used by callers.
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	MaxAttempts int           `envconfig:"LLM_MAX_ATTEMPTS" default:"3"`
	RetryDelay  time.Duration `envconfig:"LLM_RETRY_DELAY" default:"1s"`

	// Zero disables client-side rate limiting.
	RequestsPerMinute int `envconfig:"LLM_REQUESTS_PER_MINUTE" default:"60"`
}

// LoadFromEnv loads provider configuration from environment variables.
//
// Environment variables:
//   - LLM_PROVIDER: "openai" or "ollama" (default: "openai")
//   - OPENAI_API_KEY: API key (required for openai)
//   - LLM_BASE_URL: API endpoint override (ollama default: http://localhost:11434)
//   - LLM_MODEL, LLM_TEMPERATURE, LLM_MAX_TOKENS, LLM_PRESENCE_PENALTY, LLM_FREQUENCY_PENALTY
//   - LLM_TIMEOUT, LLM_MAX_ATTEMPTS, LLM_RETRY_DELAY, LLM_REQUESTS_PER_MINUTE
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load llm config: %w", err)
	}
	cfg.Provider = ProviderType(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.Provider == ProviderOllama && cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	return cfg, nil
}

// Validate checks that the configuration is valid for the selected provider.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	case ProviderOllama:
		if c.BaseURL == "" {
			return ErrMissingBaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.Model == "" {
		return errors.New("LLM_MODEL must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("LLM_TIMEOUT must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("LLM_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
