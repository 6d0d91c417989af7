// Package metrics exposes Prometheus instrumentation for the turn driver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the engine's Prometheus collectors. A nil Recorder is
// valid and records nothing.
type Recorder struct {
	turnsTotal         *prometheus.CounterVec
	turnDuration       prometheus.Histogram
	interruptionsTotal *prometheus.CounterVec
	conflictsTotal     prometheus.Counter
}

// NewRecorder creates and registers the collectors on the given registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "turns_total",
			Help:      "Processed turns by final stack status.",
		}, []string{"status"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent processing a turn.",
			Buckets:   prometheus.DefBuckets,
		}),
		interruptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "interruptions_total",
			Help:      "Interruption decisions taken before dispatch.",
		}, []string{"signal"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "state_conflicts_total",
			Help:      "Optimistic-concurrency write collisions.",
		}),
	}
	reg.MustRegister(r.turnsTotal, r.turnDuration, r.interruptionsTotal, r.conflictsTotal)
	return r
}

// ObserveTurn records one processed turn.
func (r *Recorder) ObserveTurn(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.turnsTotal.WithLabelValues(status).Inc()
	r.turnDuration.Observe(elapsed.Seconds())
}

// ObserveInterruption records an interruption decision.
func (r *Recorder) ObserveInterruption(signal string) {
	if r == nil {
		return
	}
	r.interruptionsTotal.WithLabelValues(signal).Inc()
}

// ObserveConflict records a lost state write.
func (r *Recorder) ObserveConflict() {
	if r == nil {
		return
	}
	r.conflictsTotal.Inc()
}
