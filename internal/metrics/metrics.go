// Package metrics exposes Prometheus counters for encode jobs.
//
// Labels stay low-cardinality: outcomes and rejection reasons only, never job
// IDs or paths.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hlssafe/internal/encoding"
)

// Outcome labels for hlssafe_encodes_finished_total.
const (
	OutcomeSuccess    = "success"
	OutcomeFailed     = "failed"
	OutcomeTerminated = "terminated"
)

// Encoder records encode lifecycle events. It satisfies encoding.Observer.
type Encoder struct {
	gatherer prometheus.Gatherer

	started  prometheus.Counter
	rejected *prometheus.CounterVec
	finished *prometheus.CounterVec
	active   prometheus.Gauge
	duration prometheus.Histogram
}

var _ encoding.Observer = (*Encoder)(nil)

// New registers the encode metrics with reg. A nil reg uses a fresh
// registry so repeated construction in one process never collides.
func New(reg *prometheus.Registry) *Encoder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Encoder{
		gatherer: reg,
		started: factory.NewCounter(prometheus.CounterOpts{
			Name: "hlssafe_encodes_started_total",
			Help: "Total number of encoder processes launched.",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hlssafe_encodes_rejected_total",
			Help: "Total number of encode requests that never launched, by reason.",
		}, []string{"reason"}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hlssafe_encodes_finished_total",
			Help: "Total number of launched encodes that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hlssafe_encode_active",
			Help: "1 while an encoder process is running.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hlssafe_encode_duration_seconds",
			Help:    "Wall-clock duration of launched encodes.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (e *Encoder) JobStarted() {
	e.started.Inc()
	e.active.Set(1)
}

func (e *Encoder) JobRejected(reason string) {
	e.rejected.WithLabelValues(reason).Inc()
}

func (e *Encoder) JobFinished(result encoding.Result, err error, elapsed time.Duration) {
	e.active.Set(0)
	e.finished.WithLabelValues(outcome(result, err)).Inc()
	e.duration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (e *Encoder) Handler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

func outcome(result encoding.Result, err error) string {
	switch {
	case result.Success:
		return OutcomeSuccess
	case errors.Is(err, encoding.ErrTerminated):
		return OutcomeTerminated
	default:
		return OutcomeFailed
	}
}
