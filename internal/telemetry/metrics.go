// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "javxseek"

// Turn outcomes used as the "outcome" label.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
)

// =============================================================================
// RECORDER
// =============================================================================

// Recorder owns the Prometheus collectors for one registry. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	turns          *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	firstFragment  *prometheus.HistogramVec
	fragments      prometheus.Counter
	skippedFrames  prometheus.Counter
	saveFailures   prometheus.Counter
	loadsDegraded  prometheus.Counter
	activeSessions prometheus.Gauge

	totalTurns     atomic.Int64
	totalPartial   atomic.Int64
	totalFailed    atomic.Int64
	totalFragments atomic.Int64
}

// Totals is a snapshot of the process-local counters.
type Totals struct {
	Turns     int64 `json:"turns"`
	Partial   int64 `json:"partial"`
	Failed    int64 `json:"failed"`
	Fragments int64 `json:"fragments"`
}

// NewRecorder registers the collectors with reg. Passing nil registers
// nothing with Prometheus but still keeps local totals.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by model and outcome",
		}, []string{"model", "outcome"}),
		turnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turn_duration_seconds",
			Help:      "Wall time from submit to finalized reply",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"model"}),
		firstFragment: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "first_fragment_seconds",
			Help:      "Latency until the first reply fragment arrives",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"model"}),
		fragments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "fragments_total",
			Help:      "Reply fragments decoded from the stream",
		}),
		skippedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "skipped_frames_total",
			Help:      "Malformed stream frames dropped by the decoder",
		}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "save_failures_total",
			Help:      "Session saves that failed",
		}),
		loadsDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "loads_degraded_total",
			Help:      "Session loads that fell back to a fresh session",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		}),
	}
}

// =============================================================================
// RECORDING
// =============================================================================

// ObserveTurn records a finished or failed turn.
func (r *Recorder) ObserveTurn(model, outcome string, elapsed time.Duration, fragments int) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(model, outcome).Inc()
	r.turnDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	r.fragments.Add(float64(fragments))

	r.totalTurns.Add(1)
	r.totalFragments.Add(int64(fragments))
	switch outcome {
	case OutcomePartial:
		r.totalPartial.Add(1)
	case OutcomeFailed:
		r.totalFailed.Add(1)
	}
}

// ObserveFirstFragment records time to first fragment.
func (r *Recorder) ObserveFirstFragment(model string, latency time.Duration) {
	if r == nil {
		return
	}
	r.firstFragment.WithLabelValues(model).Observe(latency.Seconds())
}

// SkippedFrames adds n dropped frames.
func (r *Recorder) SkippedFrames(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.skippedFrames.Add(float64(n))
}

// SaveFailed counts a failed save.
func (r *Recorder) SaveFailed() {
	if r == nil {
		return
	}
	r.saveFailures.Inc()
}

// LoadDegraded counts a degraded load.
func (r *Recorder) LoadDegraded() {
	if r == nil {
		return
	}
	r.loadsDegraded.Inc()
}

// SetActiveSessions reports the number of sessions held in memory.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}

// Totals returns the local counters.
func (r *Recorder) Totals() Totals {
	if r == nil {
		return Totals{}
	}
	return Totals{
		Turns:     r.totalTurns.Load(),
		Partial:   r.totalPartial.Load(),
		Failed:    r.totalFailed.Load(),
		Fragments: r.totalFragments.Load(),
	}
}
