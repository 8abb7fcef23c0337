package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plexgrid",
		Subsystem: "resolver",
		Name:      "attempts_total",
		Help:      "Endpoint attempts by outcome.",
	}, []string{"outcome"})

	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plexgrid",
		Subsystem: "resolver",
		Name:      "scans_total",
		Help:      "Completed scans by result.",
	}, []string{"result"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "plexgrid",
		Subsystem: "resolver",
		Name:      "scan_duration_seconds",
		Help:      "Wall time of a full candidate scan.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

const (
	outcomeSuccess      = "success"
	outcomeUnauthorized = "unauthorized"
	outcomeBadStatus    = "bad_status"
	outcomeTimeout      = "timeout"
	outcomeUnreachable  = "unreachable"

	resultCacheHit  = "cache_hit"
	resultResolved  = "resolved"
	resultExhausted = "exhausted"
)
