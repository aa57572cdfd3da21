package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited throttles an inner Completer to a fixed request rate shared by
// every caller in the process.
type RateLimited struct {
	inner   Completer
	limiter *rate.Limiter
}

// NewRateLimited wraps c. A non-positive perMinute returns c unchanged.
func NewRateLimited(c Completer, perMinute int) Completer {
	if perMinute <= 0 {
		return c
	}
	return &RateLimited{
		inner:   c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Name() string { return r.inner.Name() }

// Complete waits for a token, then delegates. A wait that would outlive ctx
// fails immediately.
func (r *RateLimited) Complete(ctx context.Context, req Request) (*Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", ErrCompletionFailed, err)
	}
	return r.inner.Complete(ctx, req)
}
