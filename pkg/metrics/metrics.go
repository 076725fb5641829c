// Package metrics exposes Prometheus counters for the reflection pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reflection"

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Number of reflection sessions submitted.",
	})

	sessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_finished_total",
		Help:      "Number of reflection sessions that reached a terminal state.",
	}, []string{"status"})

	responderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "responder_calls_total",
		Help:      "Number of calls to the external responder, by agent and outcome.",
	}, []string{"agent", "outcome"})

	responderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "responder_call_seconds",
		Help:      "Latency of external responder calls.",
		Buckets:   prometheus.DefBuckets,
	})

	eventsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "progress_events_total",
		Help:      "Number of progress events appended across all sessions.",
	})
)

// RecordSessionCreated increments the submitted-session counter.
func RecordSessionCreated() { sessionsCreated.Inc() }

// RecordSessionFinished records a terminal session status ("completed" or "error").
func RecordSessionFinished(status string) { sessionsCompleted.WithLabelValues(status).Inc() }

// RecordResponderCall records one responder call outcome ("ok", "timeout", "error").
func RecordResponderCall(agent, outcome string) {
	responderCalls.WithLabelValues(agent, outcome).Inc()
}

// ObserveResponderLatency records the duration of a responder call in seconds.
func ObserveResponderLatency(seconds float64) { responderLatency.Observe(seconds) }

// RecordEventAppended increments the progress event counter.
func RecordEventAppended() { eventsAppended.Inc() }
