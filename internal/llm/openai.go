package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func init() {
	RegisterProvider(ProviderOpenAI, newOpenAIProvider)
}

// openAIProvider talks to any OpenAI-compatible chat completions endpoint.
type openAIProvider struct {
	client *openai.Client
	cfg    Config
	log    *zap.Logger
}

func newOpenAIProvider(cfg Config, log *zap.Logger) (Completer, error) {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	log.Info("openai client created",
		zap.String("base_url", oc.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &openAIProvider{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		log:    log,
	}, nil
}

func (p *openAIProvider) Name() string { return string(ProviderOpenAI) }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	start := time.Now()
	p.log.Debug("sending completion request",
		zap.String("model", p.cfg.Model),
		zap.Int("prompt_bytes", len(req.Prompt)))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            p.cfg.Model,
		Messages:         messages,
		Temperature:      p.cfg.Temperature,
		MaxTokens:        p.cfg.MaxTokens,
		PresencePenalty:  p.cfg.PresencePenalty,
		FrequencyPenalty: p.cfg.FrequencyPenalty,
	})
	duration := time.Since(start)

	if err != nil {
		observeRequest(p.Name(), p.cfg.Model, "error", duration)
		p.log.Warn("completion request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observeRequest(p.Name(), p.cfg.Model, "empty", duration)
		p.log.Warn("completion returned empty content", zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, ErrEmptyCompletion)
	}

	observeRequest(p.Name(), p.cfg.Model, "success", duration)
	observeTokens(p.Name(), p.cfg.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	model := resp.Model
	if model == "" {
		model = p.cfg.Model
	}
	text := resp.Choices[0].Message.Content
	p.log.Info("completion received",
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("response_length", len(text)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return &Completion{
		Text:             text,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Duration:         duration,
	}, nil
}
