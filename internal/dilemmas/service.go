package dilemmas

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/ethics"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/llm"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// FallbackReasoning marks a synthetic response returned when generation failed.
	FallbackReasoning = "[FALLBACK RESPONSE] The AI was unable to analyze this dilemma due to an error."
	// FallbackScore is the consistency score of a fallback response.
	FallbackScore = 75

	MinLiveScore = 80
	MaxLiveScore = 100
)

// Scorer produces the consistency score of a freshly generated response.
type Scorer func() int

// RandomScorer draws uniformly from [MinLiveScore, MaxLiveScore].
func RandomScorer() int {
	return MinLiveScore + rand.IntN(MaxLiveScore-MinLiveScore+1)
}

// FixedScorer always returns v.
func FixedScorer(v int) Scorer {
	return func() int { return v }
}

type ServiceOption func(*Service)

// WithRetry sets the per-attempt timeout, the attempt budget and the base
// backoff delay used around completion requests.
func WithRetry(timeout time.Duration, maxAttempts int, baseDelay time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			s.baseDelay = baseDelay
		}
	}
}

func WithScorer(score Scorer) ServiceOption {
	return func(s *Service) {
		if score != nil {
			s.score = score
		}
	}
}

func WithResolver(r *ethics.Resolver) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

func WithClassifier(c *ethics.Classifier) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service ties the store, the completion provider and the text analysis
// together.
type Service struct {
	store      Store
	completer  llm.Completer
	resolver   *ethics.Resolver
	classifier *ethics.Classifier
	score      Scorer
	now        func() time.Time
	log        *zap.Logger

	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration

	inflight singleflight.Group
}

func NewService(store Store, completer llm.Completer, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:       store,
		completer:   completer,
		resolver:    ethics.NewDefaultResolver(ethics.RandomChooser),
		classifier:  ethics.DefaultClassifier(),
		score:       RandomScorer,
		now:         time.Now,
		log:         log,
		timeout:     60 * time.Second,
		maxAttempts: 3,
		baseDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store to handlers.
func (s *Service) Store() Store { return s.store }

// GetOrCreateResponse returns the current AI response of a dilemma, generating
// one when there is none or when force is set. options defaults to the
// dilemma's own options.
//
// Provider failures never surface as errors: the caller gets an unsaved
// fallback record instead. A missing dilemma, a dilemma without options and
// storage write failures are returned as errors. Concurrent calls without
// options share one generation; a caller that gives up gets ctx.Err() while
// the others keep waiting.
func (s *Service) GetOrCreateResponse(ctx context.Context, dilemmaID string, options []Option, force bool) (*AIResponse, error) {
	if force {
		return s.generate(ctx, dilemmaID, options)
	}
	// Caller-supplied options change the prompt, so those calls are not shared.
	if len(options) > 0 {
		return s.currentOrGenerate(ctx, dilemmaID, options)
	}

	ch := s.inflight.DoChan(dilemmaID, func() (any, error) {
		// The shared call outlives any single caller's cancellation.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sharedTimeout())
		defer cancel()
		return s.currentOrGenerate(shared, dilemmaID, nil)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// singleflight hands the same pointer to every waiter.
		r := *res.Val.(*AIResponse)
		return &r, nil
	}
}

func (s *Service) currentOrGenerate(ctx context.Context, dilemmaID string, options []Option) (*AIResponse, error) {
	latest, err := s.store.LatestAIResponse(ctx, dilemmaID)
	if err != nil {
		s.log.Warn("reading current ai response failed, generating",
			zap.String("dilemma_id", dilemmaID), zap.Error(err))
	}
	if latest != nil {
		responseOutcomes.WithLabelValues(outcomeCacheHit).Inc()
		s.log.Debug("using existing ai response", zap.String("dilemma_id", dilemmaID), zap.String("id", latest.ID))
		return latest, nil
	}
	return s.generate(ctx, dilemmaID, options)
}

// sharedTimeout bounds a de-duplicated generation: every attempt, the
// backoff between them and some slack for the store.
func (s *Service) sharedTimeout() time.Duration {
	d := s.timeout * time.Duration(s.maxAttempts)
	for attempt := 1; attempt < s.maxAttempts; attempt++ {
		d += backoff(s.baseDelay, attempt) * 11 / 10
	}
	return d + 30*time.Second
}

func (s *Service) generate(ctx context.Context, dilemmaID string, options []Option) (*AIResponse, error) {
	log := s.log.With(zap.String("dilemma_id", dilemmaID))
	log.Info("generating ai response")

	d, err := s.store.GetDilemma(ctx, dilemmaID)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		options = d.Options
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOptions, dilemmaID)
	}

	prompt := ethics.BuildPrompt(promptInput(d, options))

	completion, err := s.complete(ctx, log, prompt)
	if err != nil {
		log.Error("ai generation failed, returning fallback", zap.Error(err))
		responseOutcomes.WithLabelValues(outcomeFallback).Inc()
		return s.fallback(dilemmaID, options), nil
	}

	res, err := s.resolver.Resolve(completion.Text, len(options))
	if err != nil {
		return nil, fmt.Errorf("resolve option: %w", err)
	}
	if res.Strategy == ethics.StrategyFallback {
		log.Warn("could not determine chosen option, picked one", zap.Int("index", res.Index))
	}

	r := &AIResponse{
		ID:               uuid.NewString(),
		DilemmaID:        dilemmaID,
		OptionID:         options[res.Index].OptionID,
		Reasoning:        completion.Text,
		Framework:        s.classifier.Classify(completion.Text),
		ConsistencyScore: s.score(),
		Resolution:       res.Strategy,
		Model:            completion.Model,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.InsertAIResponse(ctx, r); err != nil {
		return nil, fmt.Errorf("save ai response for dilemma %s: %w", dilemmaID, err)
	}

	responseOutcomes.WithLabelValues(outcomeGenerated).Inc()
	responseFrameworks.WithLabelValues(string(r.Framework), string(r.Resolution)).Inc()
	log.Info("ai response saved",
		zap.String("id", r.ID),
		zap.String("option_id", r.OptionID),
		zap.String("framework", string(r.Framework)),
		zap.String("resolution", string(r.Resolution)))
	return r, nil
}

// complete calls the provider with a per-attempt timeout and exponential
// backoff with 10% jitter between attempts.
func (s *Service) complete(ctx context.Context, log *zap.Logger, prompt string) (*llm.Completion, error) {
	if s.completer == nil {
		return nil, errors.New("no completion provider configured")
	}
	req := llm.Request{System: ethics.SystemPrompt, Prompt: prompt}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		c, err := s.completer.Complete(attemptCtx, req)
		cancel()
		if err == nil {
			return c, nil
		}
		lastErr = err
		log.Warn("completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(err))

		if attempt == s.maxAttempts {
			break
		}

		wait := backoff(s.baseDelay, attempt)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting to retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, lastErr)
}

func backoff(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.1
	delay += jitter * (rand.Float64()*2 - 1)
	if wait := time.Duration(delay); wait > base {
		return wait
	}
	return base
}

func (s *Service) fallback(dilemmaID string, options []Option) *AIResponse {
	return &AIResponse{
		DilemmaID:        dilemmaID,
		OptionID:         options[0].OptionID,
		Reasoning:        FallbackReasoning,
		Framework:        ethics.Unknown,
		ConsistencyScore: FallbackScore,
		Resolution:       ethics.StrategyFallback,
		CreatedAt:        s.now().UTC(),
		Fallback:         true,
	}
}

func promptInput(d *Dilemma, options []Option) ethics.PromptInput {
	in := ethics.PromptInput{
		Title:       d.Title,
		Description: d.Description,
		Scenario:    d.Scenario,
		Options:     make([]ethics.PromptOption, len(options)),
	}
	for i, o := range options {
		in.Options[i] = ethics.PromptOption{Text: o.Text, Description: o.Description}
	}
	return in
}
