package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the stage lifecycle.
type Metrics struct {
	Transitions *prometheus.CounterVec
}

// New creates and registers the stage lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingresso_stage_transitions_total",
			Help: "Total stage lifecycle transitions by kind",
		}, []string{"kind"}), // kind: "created", "closed", "reopened"
	}
}

// IncrementTransition records one lifecycle transition.
func (m *Metrics) IncrementTransition(kind string) {
	if m != nil {
		m.Transitions.WithLabelValues(kind).Inc()
	}
}
