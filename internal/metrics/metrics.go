package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchdesk_remote_attempts_total",
		Help: "Attempts issued to the remote service grouped by operation and outcome",
	}, []string{"operation", "outcome"})

	remoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchdesk_remote_retries_total",
		Help: "Retries scheduled after a failed attempt",
	}, []string{"operation"})

	remoteCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watchdesk_remote_call_duration_seconds",
		Help:    "Duration of logical remote calls including backoff",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation", "outcome"})

	backendUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchdesk_backend_up",
		Help: "1 when the last health probe reported the backend as connected",
	})

	revalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchdesk_revalidations_total",
		Help: "Revalidation events published grouped by type",
	}, []string{"type"})
)

// Remote implements the remote client's metrics recorder on top of the
// package-level prometheus collectors.
type Remote struct{}

// ObserveAttempt counts a single attempt.
func (Remote) ObserveAttempt(operation, outcome string) {
	remoteAttempts.WithLabelValues(label(operation), label(outcome)).Inc()
}

// ObserveRetry counts a scheduled retry.
func (Remote) ObserveRetry(operation string) {
	remoteRetries.WithLabelValues(label(operation)).Inc()
}

// ObserveCall records the duration of a finished logical call.
func (Remote) ObserveCall(operation, outcome string, duration time.Duration) {
	remoteCallDuration.WithLabelValues(label(operation), label(outcome)).Observe(duration.Seconds())
}

// SetBackendUp records the latest health probe result.
func SetBackendUp(up bool) {
	if up {
		backendUp.Set(1)
		return
	}
	backendUp.Set(0)
}

// ObserveRevalidation counts a published revalidation event.
func ObserveRevalidation(eventType string) {
	revalidations.WithLabelValues(label(eventType)).Inc()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
