package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the seat allocator.
type Metrics struct {
	Outcomes *prometheus.CounterVec
	Runs     prometheus.Counter
}

// New creates and registers the allocator metrics.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingresso_allocation_outcomes_total",
			Help: "Total outcomes computed by status",
		}, []string{"status"}),
		Runs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingresso_allocation_runs_total",
			Help: "Total allocator passes",
		}),
	}
}

// IncrementOutcome records one computed outcome.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// IncrementRun records one allocator pass.
func (m *Metrics) IncrementRun() {
	if m != nil {
		m.Runs.Inc()
	}
}
