package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes, one counter each.
const (
	OutcomeReceived      = "received"
	OutcomeNotReportable = "not_reportable"
	OutcomeDebounced     = "debounced"
	OutcomeCaptured      = "captured"
	OutcomeFailed        = "failed"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeSuppressed    = "suppressed"
	OutcomePanicked      = "panicked"
)

var allOutcomes = []string{
	OutcomeReceived, OutcomeNotReportable, OutcomeDebounced, OutcomeCaptured,
	OutcomeFailed, OutcomeUnauthorized, OutcomeSuppressed, OutcomePanicked,
}

// Metrics counts pipeline outcomes and mirrors them into Prometheus.
type Metrics struct {
	mu       sync.RWMutex
	counts   map[string]int64
	outcomes *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		counts: make(map[string]int64, len(allOutcomes)),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crashgate",
			Subsystem: "telemetry",
			Name:      "events_total",
			Help:      "Log events seen by the capture pipeline, by outcome.",
		}, []string{"outcome"}),
	}
	for _, o := range allOutcomes {
		m.counts[o] = 0
		m.outcomes.WithLabelValues(o)
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

// Record increments the counter for outcome.
func (m *Metrics) Record(outcome string) {
	m.mu.Lock()
	m.counts[outcome]++
	m.mu.Unlock()
	m.outcomes.WithLabelValues(outcome).Inc()
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}
