package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	dominantScore *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elempulse_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "entity"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elempulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		dominantScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "elempulse_dominant_score",
				Help: "Last dominant archetype score for an entity",
			},
			[]string{"entity", "archetype"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "elempulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, entity string) {
	r.messagesSent.WithLabelValues(backend, entity).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordDominantScore records the current dominant archetype score for an entity.
func (r *Recorder) RecordDominantScore(entity, archetype string, score float64) {
	r.dominantScore.WithLabelValues(entity, archetype).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
