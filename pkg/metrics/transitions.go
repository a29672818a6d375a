package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransitionMetrics records order lifecycle transition outcomes.
type TransitionMetrics struct {
	accepted *prometheus.CounterVec
	denied   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewTransitionMetrics registers the transition metrics on the provided registerer.
func NewTransitionMetrics(reg prometheus.Registerer) *TransitionMetrics {
	if reg == nil {
		return &TransitionMetrics{}
	}
	accepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_accepted",
		Help: "Order transitions that committed, by action.",
	}, []string{"action"})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_denied",
		Help: "Order transitions refused by the guard, by action and error code.",
	}, []string{"action", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_transition_duration_seconds",
		Help:    "Duration of order transition handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	reg.MustRegister(accepted, denied, duration)
	return &TransitionMetrics{
		accepted: accepted,
		denied:   denied,
		duration: duration,
	}
}

// IncAccepted increments the accepted counter for the named action.
func (m *TransitionMetrics) IncAccepted(action string) {
	if m == nil || m.accepted == nil {
		return
	}
	m.accepted.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncDenied increments the denied counter for the named action and error code.
func (m *TransitionMetrics) IncDenied(action string, code string) {
	if m == nil || m.denied == nil {
		return
	}
	m.denied.WithLabelValues(normalizeLabel(action), normalizeLabel(code)).Inc()
}

// ObserveDuration records the handling duration for the named action.
func (m *TransitionMetrics) ObserveDuration(action string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(action)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
