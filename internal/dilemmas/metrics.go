package dilemmas

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCacheHit  = "cache_hit"
	outcomeGenerated = "generated"
	outcomeFallback  = "fallback"
)

var (
	responseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dilemmas_ai_response_outcomes_total",
			Help: "AI response requests by outcome (cache_hit, generated, fallback).",
		},
		[]string{"outcome"},
	)
	responseFrameworks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dilemmas_ai_response_frameworks_total",
			Help: "Generated AI responses by classified framework and option resolution strategy.",
		},
		[]string{"framework", "resolution"},
	)
)
