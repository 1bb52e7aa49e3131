// Package metrics counts what the dispatcher does and serves the counters
// over HTTP for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dispatcher's counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Messages        prometheus.Counter
	Deleted         prometheus.Counter
	CustomResponses prometheus.Counter
	Commands        *prometheus.CounterVec
	PersistErrors   prometheus.Counter
}

// New creates unregistered counters.
func New() *Metrics {
	return &Metrics{
		Messages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "serverbot",
				Name:      "messages_total",
				Help:      "Number of messages received by the dispatcher.",
			},
		),
		Deleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "serverbot",
				Name:      "messages_deleted_total",
				Help:      "Number of messages deleted by the removal filter.",
			},
		),
		CustomResponses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "serverbot",
				Name:      "custom_responses_total",
				Help:      "Number of custom responses sent.",
			},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serverbot",
				Name:      "commands_total",
				Help:      "Number of commands handled, by command name.",
			},
			[]string{"command"},
		),
		PersistErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "serverbot",
				Name:      "persist_errors_total",
				Help:      "Number of settings writes that failed.",
			},
		),
	}
}

// Collectors returns every counter for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Messages,
		m.Deleted,
		m.CustomResponses,
		m.Commands,
		m.PersistErrors,
	}
}

// ObserveMessage counts a received message.
func (m *Metrics) ObserveMessage() {
	if m == nil {
		return
	}
	m.Messages.Inc()
}

// ObserveDeleted counts a message removed by the filter.
func (m *Metrics) ObserveDeleted() {
	if m == nil {
		return
	}
	m.Deleted.Inc()
}

// ObserveCustomResponse counts a sent custom response.
func (m *Metrics) ObserveCustomResponse() {
	if m == nil {
		return
	}
	m.CustomResponses.Inc()
}

// ObserveCommand counts one handled command. Unrecognized commands should be
// reported under a single name to keep label cardinality bounded.
func (m *Metrics) ObserveCommand(name string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(name).Inc()
}

// ObservePersistError counts a failed settings write.
func (m *Metrics) ObservePersistError() {
	if m == nil {
		return
	}
	m.PersistErrors.Inc()
}
