package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records backend round-trips made by the storefront client.
type ClientMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	logouts  prometheus.Counter
}

// NewClientMetrics registers the client metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_api_request_duration_seconds",
		Help:    "Duration of backend requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_requests_total",
		Help: "Backend requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	logouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_forced_logouts_total",
		Help: "Sessions cleared because the backend answered 401.",
	})
	reg.MustRegister(duration, requests, logouts)
	return &ClientMetrics{
		duration: duration,
		requests: requests,
		logouts:  logouts,
	}
}

// ObserveRequest records one finished request. outcome is "ok" or an error code.
func (c *ClientMetrics) ObserveRequest(endpoint, outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	c.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
	c.requests.WithLabelValues(endpoint, normalizeLabel(outcome)).Inc()
}

// IncForcedLogout counts a session invalidated by the backend.
func (c *ClientMetrics) IncForcedLogout() {
	if c == nil || c.logouts == nil {
		return
	}
	c.logouts.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
