package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Common errors
var (
	ErrCompletionFailed = errors.New("completion failed")
	ErrEmptyCompletion  = errors.New("completion returned no text")
	ErrMissingAPIKey    = errors.New("OPENAI_API_KEY environment variable is required for openai provider")
	ErrMissingBaseURL   = errors.New("LLM_BASE_URL environment variable is required for ollama provider")
	ErrUnknownProvider  = errors.New("unknown provider type")
)

// Request is a single chat completion request.
type Request struct {
	System string
	Prompt string
}

// Completion is the text a provider returned plus usage bookkeeping.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
}

// Completer is the interface every language-model backend implements.
type Completer interface {
	// Name returns the provider name for logging and metrics.
	Name() string

	// Complete sends req and returns the generated text. Any failure, including an
	// empty answer, is reported as an error wrapping ErrCompletionFailed.
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Constructor builds a Completer from configuration.
type Constructor func(Config, *zap.Logger) (Completer, error)

// providerRegistry holds registered provider constructors.
var providerRegistry = make(map[ProviderType]Constructor)

// RegisterProvider registers a provider constructor for a given provider type.
// This should be called from init() in each provider file.
func RegisterProvider(providerType ProviderType, constructor Constructor) {
	providerRegistry[providerType] = constructor
}

// NewProvider creates the configured Completer, rate limited per cfg.
func NewProvider(cfg Config, log *zap.Logger) (Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	constructor, ok := providerRegistry[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	if log == nil {
		log = zap.NewNop()
	}
	c, err := constructor(cfg, log.With(zap.String("provider", string(cfg.Provider))))
	if err != nil {
		return nil, err
	}
	return NewRateLimited(c, cfg.RequestsPerMinute), nil
}
