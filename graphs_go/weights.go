package graphs_go

import (
	"fmt"
	"math"
)

// Signal is one reading from the sensors bound to an edge: a multiplicative
// congestion factor and an additive incident penalty in seconds.
type Signal struct {
	CongestionFactor float64 `json:"congestion_factor"`
	IncidentPenalty  float64 `json:"incident_penalty"`
}

// ClearSignal leaves an edge at its baseline cost.
var ClearSignal = Signal{CongestionFactor: 1.0, IncidentPenalty: 0}

func (s Signal) Validate() error {
	if !validSignalValue(s.CongestionFactor) {
		return &InvalidSignalError{Field: "congestion_factor", Value: s.CongestionFactor}
	}
	if !validSignalValue(s.IncidentPenalty) {
		return &InvalidSignalError{Field: "incident_penalty", Value: s.IncidentPenalty}
	}
	return nil
}

func validSignalValue(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Cost applies the signal to a baseline: baseline*factor + penalty.
func (s Signal) Cost(baseline float64) float64 {
	return baseline*s.CongestionFactor + s.IncidentPenalty
}

// EdgeSignal targets a signal at one monitored edge.
type EdgeSignal struct {
	Edge   EdgeKey
	Signal Signal
}

// CostChange reports the effect of a cycle on one monitored edge.
type CostChange struct {
	Edge     EdgeKey `json:"edge"`
	Baseline float64 `json:"baseline_cost"`
	Cost     float64 `json:"new_cost"`
}

// PenaltyApplied is true when the edge is currently more expensive than normal.
func (c CostChange) PenaltyApplied() bool {
	return c.Cost > c.Baseline
}

// UpdateEdgeWeights resets every edge to its baseline and then applies sig to
// the monitored edge. It returns the monitored edge's baseline and new cost.
// Inputs are validated first; on error the graph is unchanged.
func (g *Graph) UpdateEdgeWeights(monitored EdgeKey, sig Signal) (float64, float64, error) {
	changes, err := g.ApplySignals([]EdgeSignal{{Edge: monitored, Signal: sig}})
	if err != nil {
		return 0, 0, err
	}
	return changes[0].Baseline, changes[0].Cost, nil
}

// ApplySignals is the multi-edge form of UpdateEdgeWeights. The whole network
// is reset once, then each signal is applied. Signals that hit the same edge
// compose: factors multiply and penalties add. One CostChange is returned per
// distinct edge, in first-seen order.
func (g *Graph) ApplySignals(signals []EdgeSignal) ([]CostChange, error) {
	type combined struct {
		edge    EdgeKey
		idx     int
		factor  float64
		penalty float64
	}

	var plan []combined
	seen := make(map[EdgeKey]int, len(signals))
	for _, s := range signals {
		if err := s.Signal.Validate(); err != nil {
			return nil, err
		}
		idx, ok := g.edgeIndex(s.Edge)
		if !ok {
			return nil, fmt.Errorf("edge %s: %w", s.Edge, ErrEdgeNotFound)
		}
		if at, dup := seen[s.Edge]; dup {
			plan[at].factor *= s.Signal.CongestionFactor
			plan[at].penalty += s.Signal.IncidentPenalty
			continue
		}
		seen[s.Edge] = len(plan)
		plan = append(plan, combined{
			edge:    s.Edge,
			idx:     idx,
			factor:  s.Signal.CongestionFactor,
			penalty: s.Signal.IncidentPenalty,
		})
	}

	for _, p := range plan {
		base := g.edges[p.edge.FromID][p.idx].BaselineCost
		if c := (Signal{CongestionFactor: p.factor, IncidentPenalty: p.penalty}).Cost(base); !validCost(c) {
			return nil, fmt.Errorf("edge %s cost %v: %w", p.edge, c, ErrInvalidCost)
		}
	}

	g.resetCosts()

	changes := make([]CostChange, 0, len(plan))
	for _, p := range plan {
		e := &g.edges[p.edge.FromID][p.idx]
		e.CurrentCost = Signal{CongestionFactor: p.factor, IncidentPenalty: p.penalty}.Cost(e.BaselineCost)
		changes = append(changes, CostChange{Edge: p.edge, Baseline: e.BaselineCost, Cost: e.CurrentCost})
	}
	return changes, nil
}
