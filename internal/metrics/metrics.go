// Package metrics exposes the polling loop's Prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeDegraded    = "degraded"
	OutcomeUnreachable = "unreachable"
)

// Recorder holds the dashboard metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	polls        *prometheus.CounterVec
	fetchSeconds prometheus.Histogram
	droppedTicks prometheus.Counter
	staleResults prometheus.Counter
	reschedules  prometheus.Counter
	interval     prometheus.Gauge
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer for the
// process-wide registry.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldash_polls_total",
				Help: "Completed state polls by connectivity outcome",
			},
			[]string{"outcome"},
		),
		fetchSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signaldash_fetch_duration_seconds",
			Help:    "Duration of state fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		droppedTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_dropped_ticks_total",
			Help: "Timer ticks skipped because a fetch was still in flight",
		}),
		staleResults: f.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_stale_results_total",
			Help: "Fetch results discarded because a newer epoch or teardown superseded them",
		}),
		reschedules: f.NewCounter(prometheus.CounterOpts{
			Name: "signaldash_reschedules_total",
			Help: "Timer rearms caused by a changed server refresh interval",
		}),
		interval: f.NewGauge(prometheus.GaugeOpts{
			Name: "signaldash_refresh_interval_seconds",
			Help: "Polling interval currently in effect",
		}),
	}
}

// ObservePoll records one completed poll.
func (r *Recorder) ObservePoll(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(outcome).Inc()
	r.fetchSeconds.Observe(took.Seconds())
}

// DroppedTick records a tick skipped while a fetch was in flight.
func (r *Recorder) DroppedTick() {
	if r == nil {
		return
	}
	r.droppedTicks.Inc()
}

// StaleResult records a discarded late fetch result.
func (r *Recorder) StaleResult() {
	if r == nil {
		return
	}
	r.staleResults.Inc()
}

// Rescheduled records a rearm and the new interval.
func (r *Recorder) Rescheduled(d time.Duration) {
	if r == nil {
		return
	}
	r.reschedules.Inc()
	r.interval.Set(d.Seconds())
}

// SetInterval records the interval in effect without counting a rearm.
func (r *Recorder) SetInterval(d time.Duration) {
	if r == nil {
		return
	}
	r.interval.Set(d.Seconds())
}
