package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the consensus review workflow.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Situations  *prometheus.CounterVec
}

// New creates and registers the consensus review metrics.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingresso_preanalysis_evaluations_total",
			Help: "Total evaluations submitted by verdict",
		}, []string{"verdict"}),
		Situations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingresso_preanalysis_situations_total",
			Help: "Total situation transitions by resulting situation",
		}, []string{"situation"}),
	}
}

// IncrementEvaluation records one submitted evaluation.
func (m *Metrics) IncrementEvaluation(verdict string) {
	if m != nil {
		m.Evaluations.WithLabelValues(verdict).Inc()
	}
}

// IncrementSituation records one situation transition.
func (m *Metrics) IncrementSituation(situation string) {
	if m != nil {
		m.Situations.WithLabelValues(situation).Inc()
	}
}
