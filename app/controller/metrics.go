package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the controller's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	updates        *prometheus.CounterVec
	clientUpdates  *prometheus.CounterVec
	listenerErrors *prometheus.CounterVec
	inFlight       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgweb",
			Subsystem: "controller",
			Name:      "requests_total",
			Help:      "Requests sent to the engine, by type and outcome.",
		}, []string{"type", "outcome"}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgweb",
			Subsystem: "controller",
			Name:      "updates_total",
			Help:      "Updates received from the engine, by type.",
		}, []string{"type"}),
		clientUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgweb",
			Subsystem: "controller",
			Name:      "client_updates_total",
			Help:      "Client updates dispatched, by type.",
		}, []string{"type"}),
		listenerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgweb",
			Subsystem: "controller",
			Name:      "listener_errors_total",
			Help:      "Dispatches in which at least one listener failed.",
		}, []string{"class"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tgweb",
			Subsystem: "controller",
			Name:      "requests_in_flight",
			Help:      "Requests waiting for a response.",
		}),
	}
}

func (m *Metrics) request(typ, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(typ, outcome).Inc()
}

func (m *Metrics) update(typ string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(typ).Inc()
}

func (m *Metrics) clientUpdate(typ string) {
	if m == nil {
		return
	}
	m.clientUpdates.WithLabelValues(typ).Inc()
}

func (m *Metrics) listenerError(class EventClass) {
	if m == nil {
		return
	}
	m.listenerErrors.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) setInFlight(n int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(n))
}
