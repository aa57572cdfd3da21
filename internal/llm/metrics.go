package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dilemmas_llm_requests_total",
			Help: "Total number of completion requests, by provider, model and status.",
		},
		[]string{"provider", "model", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dilemmas_llm_request_duration_seconds",
			Help:    "Histogram of completion request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dilemmas_llm_tokens_total",
			Help: "Tokens consumed by completion requests, split into prompt and completion.",
		},
		[]string{"provider", "model", "kind"},
	)
)

func observeRequest(provider, model, status string, d time.Duration) {
	requestsTotal.WithLabelValues(provider, model, status).Inc()
	requestDuration.WithLabelValues(provider, model).Observe(d.Seconds())
}

func observeTokens(provider, model string, prompt, completion int) {
	if prompt > 0 {
		tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completion))
	}
}
