package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Update outcomes recorded by Metrics.
const (
	OutcomeApplied  = "applied"
	OutcomeReset    = "reset"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
)

// Metrics holds the Prometheus collectors for the engine and planner. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Updates        *prometheus.CounterVec
	InvalidSignals prometheus.Counter
	Routes         *prometheus.CounterVec
	EdgeCost       *prometheus.GaugeVec
	RouteCost      prometheus.Gauge
	UpdateDuration prometheus.Histogram
	RouteDuration  prometheus.Histogram
	Cycles         prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_updates_total",
			Help:      "Edge cost update passes by outcome",
		}, []string{"outcome"}),
		InvalidSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_signals_total",
			Help:      "Signals rejected for being negative or non-finite",
		}),
		Routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_total",
			Help:      "Route resolutions by result",
		}, []string{"result"}),
		EdgeCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitored_edge_cost_seconds",
			Help:      "Current cost of each monitored edge",
		}, []string{"sensor", "edge"}),
		RouteCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "route_cost_seconds",
			Help:      "Total cost of the last planned route",
		}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cost_update_duration_seconds",
			Help:      "Time spent resetting and applying edge costs",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		RouteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_duration_seconds",
			Help:      "Time spent snapping and searching for a route",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_cycles_total",
			Help:      "Completed sense, update and route cycles",
		}),
	}
	m.registry.MustRegister(
		m.Updates,
		m.InvalidSignals,
		m.Routes,
		m.EdgeCost,
		m.RouteCost,
		m.UpdateDuration,
		m.RouteDuration,
		m.Cycles,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeUpdate(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(outcome).Inc()
	m.UpdateDuration.Observe(d.Seconds())
	if outcome == OutcomeRejected {
		m.InvalidSignals.Inc()
	}
}

func (m *Metrics) observeRoute(found bool, cost float64, d time.Duration) {
	if m == nil {
		return
	}
	result := "found"
	if !found {
		result = "no_path"
	}
	m.Routes.WithLabelValues(result).Inc()
	m.RouteDuration.Observe(d.Seconds())
	if found {
		m.RouteCost.Set(cost)
	}
}

func (m *Metrics) setEdgeCost(sensor, edge string, cost float64) {
	if m == nil {
		return
	}
	m.EdgeCost.WithLabelValues(sensor, edge).Set(cost)
}

func (m *Metrics) cycleDone() {
	if m == nil {
		return
	}
	m.Cycles.Inc()
}
