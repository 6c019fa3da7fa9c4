package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP and callback instrumentation.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	callbacksTotal   *prometheus.CounterVec
	callbackOutcomes *prometheus.CounterVec
}

// NewMetrics registers the gateway metrics on a registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_http_requests_total",
				Help: "HTTP requests by method, path and status.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		callbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_callbacks_total",
				Help: "Provider callbacks by provider and transaction type.",
			},
			[]string{"provider", "type"},
		),
		callbackOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_callback_outcomes_total",
				Help: "Callback outcomes by provider and error code; ok for successes.",
			},
			[]string{"provider", "outcome"},
		),
	}
}

// Handler instruments the request path. Route templates keep the path label
// cardinality bounded.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveCallback records a decoded callback.
func (m *Metrics) ObserveCallback(provider, txType string) {
	m.callbacksTotal.WithLabelValues(provider, txType).Inc()
}

// ObserveOutcome records a callback outcome. Empty code means success.
func (m *Metrics) ObserveOutcome(provider, errorCode string) {
	outcome := errorCode
	if outcome == "" {
		outcome = "ok"
	}
	m.callbackOutcomes.WithLabelValues(provider, outcome).Inc()
}
