// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "rep"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Market metrics
	TxTotal       *prometheus.CounterVec
	TxFailures    *prometheus.CounterVec
	TxDuration    *prometheus.HistogramVec
	TokensCreated prometheus.Counter
	Trades        *prometheus.CounterVec
	LastSeq       prometheus.Gauge

	// Event delivery metrics
	EventsPublished prometheus.Counter
	SinkFailures    *prometheus.CounterVec
	WSClients       prometheus.Gauge
	WSDropped       prometheus.Counter

	// Replay metrics
	TxReplayed prometheus.Counter

	// API metrics
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HTTPRateLimited prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TxTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "tx_total",
			Help:      "Total number of committed transactions by operation",
		}, []string{"op"}),
		TxFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "tx_failures_total",
			Help:      "Total number of rejected or reverted transactions by operation and error kind",
		}, []string{"op", "kind"}),
		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "tx_duration_seconds",
			Help:      "Transaction execution latency by operation",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"op"}),
		TokensCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "tokens_created_total",
			Help:      "Total number of reserve tokens created",
		}),
		Trades: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "trades_total",
			Help:      "Total number of mints and burns by side",
		}, []string{"side"}),
		LastSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "last_seq",
			Help:      "Sequence number of the last committed transaction",
		}),

		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of committed events handed to sinks",
		}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "sink_failures_total",
			Help:      "Total number of failed event deliveries by sink",
		}, []string{"sink"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients",
		}),
		WSDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_dropped_total",
			Help:      "Total number of websocket clients dropped for falling behind",
		}),

		TxReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "tx_total",
			Help:      "Total number of journal transactions replayed",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint serving g.
// A nil g serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordTx records a committed transaction.
func (m *Metrics) RecordTx(op string, seq uint64, d time.Duration) {
	if m == nil {
		return
	}
	m.TxTotal.WithLabelValues(op).Inc()
	m.TxDuration.WithLabelValues(op).Observe(d.Seconds())
	m.LastSeq.Set(float64(seq))
	switch op {
	case "create_rep":
		m.TokensCreated.Inc()
	case "mint", "burn":
		m.Trades.WithLabelValues(op).Inc()
	}
}

// RecordTxFailure records a rejected transaction.
func (m *Metrics) RecordTxFailure(op, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.TxFailures.WithLabelValues(op, kind).Inc()
	m.TxDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordPublished records events handed to sinks.
func (m *Metrics) RecordPublished(n int) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(float64(n))
}

// RecordSinkFailure records a failed delivery to sink.
func (m *Metrics) RecordSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

// SetWSClients updates the websocket client gauge.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}

// RecordWSDropped records a websocket client dropped for falling behind.
func (m *Metrics) RecordWSDropped() {
	if m == nil {
		return
	}
	m.WSDropped.Inc()
}

// RecordReplayed records a replayed journal transaction.
func (m *Metrics) RecordReplayed() {
	if m == nil {
		return
	}
	m.TxReplayed.Inc()
}

// RecordHTTP records a served HTTP request.
func (m *Metrics) RecordHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.HTTPRateLimited.Inc()
}
