package dialog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reconciliation outcomes
const (
	OutcomeKept      = "kept"
	OutcomeDiscarded = "discarded"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Request kinds
const (
	kindOptions  = "options"
	kindControls = "controls"
	kindPrompt   = "prompt"
)

// Metrics collects reconciliation counters. A nil *Metrics records nothing.
type Metrics struct {
	Reconciliations *prometheus.CounterVec
	StaleResponses  *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fragsync",
			Name:      "reconciliations_total",
			Help:      "Fragment changes by outcome.",
		}, []string{"outcome"}),
		StaleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fragsync",
			Name:      "stale_responses_total",
			Help:      "Results dropped because a newer request superseded them.",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fragsync",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of field markup requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Reconciliations, m.StaleResponses, m.FetchDuration)
	}
	return m
}

func (m *Metrics) reconciled(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) staleResponse(kind string) {
	if m == nil {
		return
	}
	m.StaleResponses.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeFetch(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}
