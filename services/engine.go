package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/graphs_go"
)

var (
	ErrUnknownSensor = errors.New("engine: unknown sensor")
	ErrNoMonitors    = errors.New("engine: at least one monitor is required")
)

// Monitor is a sensor and the road segments its readings apply to.
type Monitor struct {
	SensorID string              `json:"sensor_id"`
	Edges    []graphs_go.EdgeKey `json:"edges"`
}

// MonitoredEdge is a monitored segment with its current state.
type MonitoredEdge struct {
	SensorID     string            `json:"sensor_id"`
	Edge         graphs_go.EdgeKey `json:"edge"`
	Name         string            `json:"name,omitempty"`
	BaselineCost float64           `json:"baseline_cost"`
	CurrentCost  float64           `json:"current_cost"`
}

// AdaptiveEngine owns the road network. Cost updates take the write lock so
// route searches never observe a half-applied update.
type AdaptiveEngine struct {
	mu       sync.RWMutex
	graph    *graphs_go.Graph
	monitors []Monitor
	bySensor map[string]int

	logger  *zap.Logger
	metrics *Metrics
}

// NewAdaptiveEngine checks that every monitored edge exists. The first
// monitor is the primary one driven by Update.
func NewAdaptiveEngine(g *graphs_go.Graph, monitors []Monitor, logger *zap.Logger, metrics *Metrics) (*AdaptiveEngine, error) {
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}
	e := &AdaptiveEngine{
		graph:    g,
		monitors: make([]Monitor, 0, len(monitors)),
		bySensor: make(map[string]int, len(monitors)),
		logger:   logger,
		metrics:  metrics,
	}
	for _, m := range monitors {
		if m.SensorID == "" {
			return nil, fmt.Errorf("monitor without sensor id")
		}
		if _, dup := e.bySensor[m.SensorID]; dup {
			return nil, fmt.Errorf("duplicate monitor %q", m.SensorID)
		}
		if len(m.Edges) == 0 {
			return nil, fmt.Errorf("monitor %q has no edges", m.SensorID)
		}
		for _, key := range m.Edges {
			if !g.HasEdge(key) {
				return nil, fmt.Errorf("monitor %q edge %s: %w", m.SensorID, key, graphs_go.ErrEdgeNotFound)
			}
		}
		e.bySensor[m.SensorID] = len(e.monitors)
		e.monitors = append(e.monitors, Monitor{
			SensorID: m.SensorID,
			Edges:    append([]graphs_go.EdgeKey(nil), m.Edges...),
		})
	}
	e.refreshGauges()
	return e, nil
}

// Update resets the network and applies one signal to the primary monitor.
// It returns the baseline and new cost of the primary monitor's first edge.
func (e *AdaptiveEngine) Update(factor, penalty float64) (float64, float64, error) {
	primary := e.monitors[0]
	changes, err := e.ApplyReadings(map[string]graphs_go.Signal{
		primary.SensorID: {CongestionFactor: factor, IncidentPenalty: penalty},
	})
	if err != nil {
		return 0, 0, err
	}
	return changes[0].Baseline, changes[0].Cost, nil
}

// ApplyReadings resets every edge to baseline and applies each sensor's
// signal to that sensor's edges. Monitors without a reading stay at baseline.
// On error nothing is changed.
func (e *AdaptiveEngine) ApplyReadings(readings map[string]graphs_go.Signal) ([]graphs_go.CostChange, error) {
	for sensor := range readings {
		if _, ok := e.bySensor[sensor]; !ok {
			return nil, fmt.Errorf("sensor %q: %w", sensor, ErrUnknownSensor)
		}
	}

	var signals []graphs_go.EdgeSignal
	for _, m := range e.monitors {
		sig, ok := readings[m.SensorID]
		if !ok {
			continue
		}
		for _, key := range m.Edges {
			signals = append(signals, graphs_go.EdgeSignal{Edge: key, Signal: sig})
		}
	}

	start := time.Now()
	e.mu.Lock()
	changes, err := e.graph.ApplySignals(signals)
	e.mu.Unlock()
	elapsed := time.Since(start)

	if err != nil {
		outcome := OutcomeSkipped
		if errors.Is(err, graphs_go.ErrInvalidSignal) {
			outcome = OutcomeRejected
		}
		e.metrics.observeUpdate(outcome, elapsed)
		e.logger.Warn("Edge cost update rejected", zap.Error(err))
		return nil, err
	}

	outcome := OutcomeApplied
	if len(signals) == 0 {
		outcome = OutcomeReset
	}
	e.metrics.observeUpdate(outcome, elapsed)
	e.refreshGauges()

	for _, c := range changes {
		e.logger.Debug("Edge cost updated",
			zap.Int64("from", c.Edge.FromID),
			zap.Int64("to", c.Edge.ToID),
			zap.Int("key", c.Edge.Key),
			zap.Float64("baseline", c.Baseline),
			zap.Float64("cost", c.Cost),
		)
	}
	return changes, nil
}

// Reset puts every edge back to its baseline cost.
func (e *AdaptiveEngine) Reset() error {
	_, err := e.ApplyReadings(nil)
	return err
}

// ResolveRoute finds the cheapest route between two coordinates under the
// current costs. A missing path is reported through Route.Found.
func (e *AdaptiveEngine) ResolveRoute(origin, destination graphs_go.Coordinate) (graphs_go.Route, error) {
	start := time.Now()
	e.mu.RLock()
	route, err := e.graph.ResolveRoute(origin, destination)
	e.mu.RUnlock()
	if err != nil {
		return graphs_go.Route{}, err
	}
	e.metrics.observeRoute(route.Found, route.Cost, time.Since(start))
	if !route.Found {
		e.logger.Info("No route between snapped nodes",
			zap.Int64("origin", route.OriginNode),
			zap.Int64("destination", route.DestinationNode),
		)
	}
	return route, nil
}

func (e *AdaptiveEngine) Coordinate(id int64) (graphs_go.Coordinate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Coordinate(id)
}

// Coordinates maps node ids to coordinates, in order.
func (e *AdaptiveEngine) Coordinates(ids []int64) ([]graphs_go.Coordinate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]graphs_go.Coordinate, 0, len(ids))
	for _, id := range ids {
		c, err := e.graph.Coordinate(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (e *AdaptiveEngine) Node(id int64) (graphs_go.Node, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.graph.Node(id)
	if !ok {
		return graphs_go.Node{}, fmt.Errorf("node %d: %w", id, graphs_go.ErrNodeNotFound)
	}
	return n, nil
}

// EdgeCost returns a snapshot of one edge.
func (e *AdaptiveEngine) EdgeCost(key graphs_go.EdgeKey) (graphs_go.Edge, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	edge, ok := e.graph.Edge(key)
	if !ok {
		return graphs_go.Edge{}, fmt.Errorf("edge %s: %w", key, graphs_go.ErrEdgeNotFound)
	}
	return edge, nil
}

// Monitors returns a copy of the configured monitors.
func (e *AdaptiveEngine) Monitors() []Monitor {
	out := make([]Monitor, len(e.monitors))
	for i, m := range e.monitors {
		out[i] = Monitor{SensorID: m.SensorID, Edges: append([]graphs_go.EdgeKey(nil), m.Edges...)}
	}
	return out
}

// Monitor returns the monitor for sensorID.
func (e *AdaptiveEngine) Monitor(sensorID string) (Monitor, error) {
	i, ok := e.bySensor[sensorID]
	if !ok {
		return Monitor{}, fmt.Errorf("sensor %q: %w", sensorID, ErrUnknownSensor)
	}
	m := e.monitors[i]
	return Monitor{SensorID: m.SensorID, Edges: append([]graphs_go.EdgeKey(nil), m.Edges...)}, nil
}

func (e *AdaptiveEngine) PrimarySensor() string {
	return e.monitors[0].SensorID
}

// MonitoredEdges lists every monitored edge with its current cost.
func (e *AdaptiveEngine) MonitoredEdges() []MonitoredEdge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.monitoredEdgesLocked()
}

func (e *AdaptiveEngine) monitoredEdgesLocked() []MonitoredEdge {
	var out []MonitoredEdge
	for _, m := range e.monitors {
		for _, key := range m.Edges {
			edge, _ := e.graph.Edge(key)
			out = append(out, MonitoredEdge{
				SensorID:     m.SensorID,
				Edge:         key,
				Name:         edge.Name,
				BaselineCost: edge.BaselineCost,
				CurrentCost:  edge.CurrentCost,
			})
		}
	}
	return out
}

// Stats returns node and edge counts.
func (e *AdaptiveEngine) Stats() (int, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.NodeCount(), e.graph.EdgeCount()
}

func (e *AdaptiveEngine) refreshGauges() {
	if e.metrics == nil {
		return
	}
	for _, me := range e.MonitoredEdges() {
		e.metrics.setEdgeCost(me.SensorID, me.Edge.String(), me.CurrentCost)
	}
}
