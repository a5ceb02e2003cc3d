package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequests counts handled HTTP requests by method, path, and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "feedline",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Number of handled HTTP requests.",
}, []string{"method", "path", "status"})

// HTTPDuration observes request latency by method and path.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "feedline",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency distribution.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "path"})

// AuthAttempts counts login attempts by outcome.
var AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "feedline",
	Subsystem: "auth",
	Name:      "attempts_total",
	Help:      "Number of authentication attempts by outcome.",
}, []string{"outcome"})

// VerificationOutcomes counts email verification attempts by outcome.
var VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "feedline",
	Subsystem: "verification",
	Name:      "attempts_total",
	Help:      "Number of email verification attempts by outcome.",
}, []string{"outcome"})

// ActiveSessions tracks the number of live sessions.
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "feedline",
	Subsystem: "auth",
	Name:      "active_sessions",
	Help:      "Number of sessions that have been created and not yet revoked.",
})
