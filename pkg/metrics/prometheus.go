package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	documents     *prometheus.CounterVec
	mentions      *prometheus.CounterVec
	windowUpdates *prometheus.CounterVec
	messagesSent  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerpulse_documents_total",
				Help: "Documents seen by the aggregator, by outcome",
			},
			[]string{"outcome"},
		),
		mentions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerpulse_mentions_total",
				Help: "Ticker mentions counted",
			},
			[]string{"ticker"},
		),
		windowUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerpulse_window_updates_total",
				Help: "Rolling window updates, by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		messagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerpulse_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "key"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickerpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickerpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickerpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDocument records one aggregated document (counted, below_threshold, skipped).
func (r *Recorder) RecordDocument(outcome string) {
	r.documents.WithLabelValues(outcome).Inc()
}

// RecordMentions adds n mentions of ticker.
func (r *Recorder) RecordMentions(ticker string, n int) {
	r.mentions.WithLabelValues(ticker).Add(float64(n))
}

// RecordWindowUpdate records a window update outcome (applied, transient, malformed).
func (r *Recorder) RecordWindowUpdate(symbol, outcome string) {
	r.windowUpdates.WithLabelValues(symbol, outcome).Inc()
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, key string) {
	r.messagesSent.WithLabelValues(backend, key).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordDocument(string)             {}
func (Noop) RecordMentions(string, int)        {}
func (Noop) RecordWindowUpdate(string, string) {}
func (Noop) RecordMessageSent(string, string)  {}
func (Noop) RecordError(string)                {}
func (Noop) RecordLastPrice(string, float64)   {}
func (Noop) RecordLatency(string, float64)     {}
