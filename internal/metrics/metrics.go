// Package metrics holds the process-wide Prometheus instruments for
// placement sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_sessions_started_total",
			Help: "Placement sessions opened",
		},
		[]string{"strategy"},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_sessions_closed_total",
			Help: "Placement sessions closed, by final status",
		},
		[]string{"strategy", "status"},
	)

	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_answers_total",
			Help: "Comparison answers accepted",
		},
		[]string{"result"},
	)

	Undos = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ranker_undos_total",
			Help: "Answers withdrawn by undo",
		},
	)

	ComparisonsPerPlacement = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranker_comparisons_per_placement",
			Help:    "Questions answered before a placement resolved",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0..10
		},
		[]string{"strategy"},
	)

	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ranker_session_duration_seconds",
			Help:    "Wall time from session start to close",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 900, 3600},
		},
		[]string{"status"},
	)

	InvariantFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ranker_invariant_failures_total",
			Help: "Transitions rejected by the eval harness",
		},
	)
)

// RecordStart counts a new session.
func RecordStart(strategy string) {
	SessionsStarted.WithLabelValues(strategy).Inc()
}

// RecordAnswer counts one accepted answer.
func RecordAnswer(result string) {
	Answers.WithLabelValues(result).Inc()
}

// RecordUndo counts one undo.
func RecordUndo() {
	Undos.Inc()
}

// RecordClose counts a closed session. comparisons feeds the per-placement
// histogram only for resolved sessions.
func RecordClose(strategy, status string, comparisons int, elapsed time.Duration) {
	SessionsClosed.WithLabelValues(strategy, status).Inc()
	SessionDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if status == "resolved" {
		ComparisonsPerPlacement.WithLabelValues(strategy).Observe(float64(comparisons))
	}
}

// RecordInvariantFailure counts an eval rejection.
func RecordInvariantFailure() {
	InvariantFailures.Inc()
}
