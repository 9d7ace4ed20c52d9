// Package observability exports engine counters as Prometheus metrics and
// serves them over HTTP. It implements the runtime metrics contract and the
// lifecycle hook signature, so it plugs into the engine without the engine
// knowing about Prometheus.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/caseflow/pkg/domain"
)

const namespace = "caseflow"

// Metrics holds the engine collectors bound to one registry.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal  *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	instancesOpen  prometheus.Gauge
}

// New creates the collectors on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the collectors on a caller-owned registry.
// Useful for tests and for sharing one registry across subsystems.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of submitted commands",
			},
			[]string{"trigger", "status"}, // status: committed, rejected
		),
		conflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_conflicts_total",
				Help:      "Optimistic lock conflicts, including retried ones",
			},
			[]string{"trigger"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Committed lifecycle transitions by target state",
			},
			[]string{"state"},
		),
		instancesOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "case_instances_open",
				Help:      "Case instances started and not yet ended",
			},
		),
	}
	reg.MustRegister(m.commandsTotal, m.conflictsTotal, m.transitions, m.instancesOpen)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// CommandCommitted counts a committed command and its transitions.
func (m *Metrics) CommandCommitted(trigger string, transitions int) {
	m.commandsTotal.WithLabelValues(trigger, "committed").Inc()
}

// CommandFailed counts a rejected command.
func (m *Metrics) CommandFailed(trigger string) {
	m.commandsTotal.WithLabelValues(trigger, "rejected").Inc()
}

// CommandConflict counts one optimistic lock conflict.
func (m *Metrics) CommandConflict(trigger string) {
	m.conflictsTotal.WithLabelValues(trigger).Inc()
}

// Hooks returns lifecycle hooks recording transition and instance gauges.
// Merge them with application hooks if both are needed.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, ev *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(ev.To)).Inc()
		},
		OnInstanceStart: func(ctx context.Context, ev *domain.TransitionEvent) {
			m.instancesOpen.Inc()
		},
		OnInstanceEnd: func(ctx context.Context, ev *domain.TransitionEvent) {
			m.instancesOpen.Dec()
		},
	}
}
