package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

func init() {
	RegisterProvider(ProviderOllama, newOllamaProvider)
}

// ollamaProvider uses the native Ollama chat API of a self-hosted model.
type ollamaProvider struct {
	client *api.Client
	cfg    Config
	log    *zap.Logger
}

func newOllamaProvider(cfg Config, log *zap.Logger) (Completer, error) {
	// api.NewClient wants the bare host, without an OpenAI-style /v1 suffix.
	base := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url %q: %w", base, err)
	}

	log.Info("ollama client created",
		zap.String("base_url", base),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &ollamaProvider{
		client: api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		cfg:    cfg,
		log:    log,
	}, nil
}

func (p *ollamaProvider) Name() string { return string(ProviderOllama) }

func (p *ollamaProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := make([]api.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.cfg.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature":       p.cfg.Temperature,
			"num_predict":       p.cfg.MaxTokens,
			"presence_penalty":  p.cfg.PresencePenalty,
			"frequency_penalty": p.cfg.FrequencyPenalty,
		},
	}

	start := time.Now()
	var resp api.ChatResponse
	err := p.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		observeRequest(p.Name(), p.cfg.Model, "error", duration)
		p.log.Warn("completion request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	if strings.TrimSpace(resp.Message.Content) == "" {
		observeRequest(p.Name(), p.cfg.Model, "empty", duration)
		p.log.Warn("completion returned empty content", zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, ErrEmptyCompletion)
	}

	observeRequest(p.Name(), p.cfg.Model, "success", duration)
	observeTokens(p.Name(), p.cfg.Model, resp.PromptEvalCount, resp.EvalCount)

	model := resp.Model
	if model == "" {
		model = p.cfg.Model
	}
	p.log.Info("completion received",
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("response_length", len(resp.Message.Content)))

	return &Completion{
		Text:             resp.Message.Content,
		Model:            model,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		Duration:         duration,
	}, nil
}
