package graphs_go

import (
	"fmt"
	"math"
)

// Node represents a graph node (intersection).
type Node struct {
	ID          int64
	Latitude    float64
	Longitude   float64
	StreetCount int
}

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (n Node) Coordinate() Coordinate {
	return Coordinate{Latitude: n.Latitude, Longitude: n.Longitude}
}

// EdgeKey identifies one road segment of the multigraph. Key is the index of
// the segment among the parallel segments from FromID to ToID.
type EdgeKey struct {
	FromID int64 `json:"from" yaml:"from"`
	ToID   int64 `json:"to" yaml:"to"`
	Key    int   `json:"key" yaml:"key"`
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%d->%d#%d", k.FromID, k.ToID, k.Key)
}

// Edge is a directed road segment. BaselineCost is the free-flow travel time
// in seconds and never changes after load; CurrentCost is what routing uses.
type Edge struct {
	FromID       int64
	ToID         int64
	Key          int
	Length       float64
	MaxSpeed     float64
	Name         string
	BaselineCost float64
	CurrentCost  float64
}

func (e Edge) Ref() EdgeKey {
	return EdgeKey{FromID: e.FromID, ToID: e.ToID, Key: e.Key}
}

// Graph is the road network: a directed multigraph whose node order is the
// order in which nodes were added.
type Graph struct {
	nodes     map[int64]Node
	edges     map[int64][]Edge
	order     []int64
	edgeCount int
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[int64]Node),
		edges: make(map[int64][]Edge),
	}
}

// AddNode inserts n, or updates its attributes if the id is already known.
// Re-adding a node does not change its position in the canonical order.
func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodes[n.ID]; !ok {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// AddEdge appends a road segment and returns its key. The parallel-edge index
// is assigned here; e.Key and e.CurrentCost are ignored.
func (g *Graph) AddEdge(e Edge) (EdgeKey, error) {
	if _, ok := g.nodes[e.FromID]; !ok {
		return EdgeKey{}, fmt.Errorf("edge %d->%d: source %w", e.FromID, e.ToID, ErrNodeNotFound)
	}
	if _, ok := g.nodes[e.ToID]; !ok {
		return EdgeKey{}, fmt.Errorf("edge %d->%d: target %w", e.FromID, e.ToID, ErrNodeNotFound)
	}
	if !validCost(e.BaselineCost) {
		return EdgeKey{}, fmt.Errorf("edge %d->%d baseline %v: %w", e.FromID, e.ToID, e.BaselineCost, ErrInvalidCost)
	}

	key := 0
	for _, existing := range g.edges[e.FromID] {
		if existing.ToID == e.ToID {
			key++
		}
	}
	e.Key = key
	e.CurrentCost = e.BaselineCost
	g.edges[e.FromID] = append(g.edges[e.FromID], e)
	g.edgeCount++
	return e.Ref(), nil
}

func validCost(c float64) bool {
	return c >= 0 && !math.IsInf(c, 0) && !math.IsNaN(c)
}

func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Coordinate returns the position of node id for rendering.
func (g *Graph) Coordinate(id int64) (Coordinate, error) {
	n, ok := g.nodes[id]
	if !ok {
		return Coordinate{}, fmt.Errorf("node %d: %w", id, ErrNodeNotFound)
	}
	return n.Coordinate(), nil
}

// NodeIDs returns node ids in canonical order.
func (g *Graph) NodeIDs() []int64 {
	ids := make([]int64, len(g.order))
	copy(ids, g.order)
	return ids
}

// OutgoingEdges returns a copy of the edges leaving id, in insertion order.
func (g *Graph) OutgoingEdges(id int64) []Edge {
	out := make([]Edge, len(g.edges[id]))
	copy(out, g.edges[id])
	return out
}

func (g *Graph) Edge(ref EdgeKey) (Edge, bool) {
	i, ok := g.edgeIndex(ref)
	if !ok {
		return Edge{}, false
	}
	return g.edges[ref.FromID][i], true
}

func (g *Graph) HasEdge(ref EdgeKey) bool {
	_, ok := g.edgeIndex(ref)
	return ok
}

func (g *Graph) NodeCount() int { return len(g.order) }

func (g *Graph) EdgeCount() int { return g.edgeCount }

// ForEachEdge visits every edge in canonical order: nodes in insertion order,
// then each node's outgoing edges in insertion order.
func (g *Graph) ForEachEdge(fn func(Edge)) {
	for _, id := range g.order {
		for _, e := range g.edges[id] {
			fn(e)
		}
	}
}

func (g *Graph) edgeIndex(ref EdgeKey) (int, bool) {
	for i, e := range g.edges[ref.FromID] {
		if e.ToID == ref.ToID && e.Key == ref.Key {
			return i, true
		}
	}
	return -1, false
}

func (g *Graph) resetCosts() {
	for _, list := range g.edges {
		for i := range list {
			list[i].CurrentCost = list[i].BaselineCost
		}
	}
}
