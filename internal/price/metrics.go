package price

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findly",
		Subsystem: "price_intent",
		Name:      "resolutions_total",
		Help:      "Resolved queries by tier: pattern, fallback, estimate or none",
	}, []string{"tier"})

	memoHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findly",
		Subsystem: "price_intent",
		Name:      "memo_hits_total",
		Help:      "Queries answered from the resolver memo cache",
	})

	estimateFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findly",
		Subsystem: "price_intent",
		Name:      "estimate_failures_total",
		Help:      "External estimations that produced no intent, by reason",
	}, []string{"reason"})

	estimateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "findly",
		Subsystem: "price_intent",
		Name:      "estimate_latency_seconds",
		Help:      "Latency of external price estimation calls",
		Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 3.0, 5.0},
	})
)
