// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailtriage/mailtriage/internal/core"
)

// Metrics implements core.Metrics over Prometheus collectors.
type Metrics struct {
	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	agentUnavailable *prometheus.CounterVec
	noAgents         prometheus.Counter
}

// New creates the collectors and registers them with the given registerer.
// Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailtriage",
			Name:      "analyses_total",
			Help:      "Completed analyses by final action.",
		}, []string{"action"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mailtriage",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one full analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		agentUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailtriage",
			Name:      "agent_unavailable_total",
			Help:      "Agent results discarded, by agent and failure kind.",
		}, []string{"agent", "kind"}),
		noAgents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mailtriage",
			Name:      "no_agents_available_total",
			Help:      "Analyses that failed open because every agent was unavailable. Alert on any increase.",
		}),
	}
	reg.MustRegister(m.analysesTotal, m.analysisDuration, m.agentUnavailable, m.noAgents)
	return m
}

// ObserveAnalysis implements core.Metrics.
func (m *Metrics) ObserveAnalysis(action core.Action, elapsed time.Duration) {
	m.analysesTotal.WithLabelValues(string(action)).Inc()
	m.analysisDuration.Observe(elapsed.Seconds())
}

// ObserveAgentUnavailable implements core.Metrics.
func (m *Metrics) ObserveAgentUnavailable(agentID string, kind core.ErrorKind) {
	m.agentUnavailable.WithLabelValues(agentID, string(kind)).Inc()
}

// ObserveNoAgentsAvailable implements core.Metrics.
func (m *Metrics) ObserveNoAgentsAvailable() {
	m.noAgents.Inc()
}
