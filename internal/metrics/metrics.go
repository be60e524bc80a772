// Package metrics exposes ledger counters to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/congo-pay/assetledger/internal/events"
)

// Metrics groups the ledger collectors. It doubles as an events.Sink so that
// committed changes are counted from the same stream every other sink sees.
type Metrics struct {
	Registry *prometheus.Registry

	events       *prometheus.CounterVec
	failures     *prometheus.CounterVec
	collaborator *prometheus.CounterVec
}

// New registers the ledger collectors on a fresh registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetledger",
			Name:      "events_total",
			Help:      "Committed ledger events by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetledger",
			Name:      "operation_failures_total",
			Help:      "Rejected ledger operations by operation and reason.",
		}, []string{"operation", "reason"}),
		collaborator: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetledger",
			Name:      "reference_failures_total",
			Help:      "Reference counter calls that failed after commit.",
		}, []string{"direction"}),
	}
	reg.MustRegister(
		m.events,
		m.failures,
		m.collaborator,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Record counts a committed event.
func (m *Metrics) Record(_ context.Context, event events.Event) {
	m.events.WithLabelValues(string(event.Kind)).Inc()
}

// OperationFailed counts a rejected operation.
func (m *Metrics) OperationFailed(operation, reason string) {
	m.failures.WithLabelValues(operation, reason).Inc()
}

// ReferenceFailed counts a reference counter call that failed after commit.
func (m *Metrics) ReferenceFailed(direction string) {
	m.collaborator.WithLabelValues(direction).Inc()
}
