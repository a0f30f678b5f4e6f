package graphs_go

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

func TestShortestPathDiamond(t *testing.T) {
	g := newDiamond(t)

	route, err := g.ShortestPath(1, 4)
	if err != nil {
		t.Fatalf("ShortestPath returned error: %v", err)
	}
	want := Route{
		Found:           true,
		OriginNode:      1,
		DestinationNode: 4,
		Nodes:           []int64{1, 2, 4},
		Edges:           []EdgeKey{{FromID: 1, ToID: 2}, {FromID: 2, ToID: 4}},
		Cost:            150,
	}
	if diff := cmp.Diff(want, route); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := newDiamond(t)
	route, err := g.ShortestPath(3, 3)
	require.NoError(t, err)
	assert.True(t, route.Found)
	assert.Equal(t, []int64{3}, route.Nodes)
	assert.Empty(t, route.Edges)
	assert.Zero(t, route.Cost)
}

func TestShortestPathUnknownNode(t *testing.T) {
	g := newDiamond(t)
	_, err := g.ShortestPath(1, 99)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = g.ShortestPath(99, 1)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestNoPathIsAResultNotAnError(t *testing.T) {
	g := newDiamond(t)
	g.AddNode(Node{ID: 5, Latitude: 59.40, Longitude: 18.20})
	// 5 has an outgoing edge but nothing reaches it.
	mustEdge(t, g, 5, 1, 10)

	route, err := g.ShortestPath(1, 5)
	require.NoError(t, err)
	assert.False(t, route.Found)
	assert.Nil(t, route.Nodes)
	assert.Nil(t, route.Edges)
	assert.Equal(t, int64(1), route.OriginNode)
	assert.Equal(t, int64(5), route.DestinationNode)

	route, err = g.ResolveRoute(startCoord, Coordinate{Latitude: 59.40, Longitude: 18.20})
	require.NoError(t, err)
	assert.False(t, route.Found)
}

func TestShortestPathTieBreaksOnLowerID(t *testing.T) {
	g := NewGraph()
	for id := int64(1); id <= 4; id++ {
		g.AddNode(Node{ID: id})
	}
	// Insert the high-id branch first so insertion order cannot decide.
	mustEdge(t, g, 1, 3, 10)
	mustEdge(t, g, 3, 4, 10)
	mustEdge(t, g, 1, 2, 10)
	mustEdge(t, g, 2, 4, 10)

	for i := 0; i < 5; i++ {
		route, err := g.ShortestPath(1, 4)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 4}, route.Nodes)
		assert.Equal(t, 20.0, route.Cost)
	}
}

func TestShortestPathParallelEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: 1})
	g.AddNode(Node{ID: 2})
	mustEdge(t, g, 1, 2, 10)
	mustEdge(t, g, 1, 2, 5)
	mustEdge(t, g, 1, 2, 5)

	route, err := g.ShortestPath(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{{FromID: 1, ToID: 2, Key: 1}}, route.Edges)
	assert.Equal(t, 5.0, route.Cost)

	// Make key 0 the cheapest.
	_, _, err = g.UpdateEdgeWeights(EdgeKey{FromID: 1, ToID: 2, Key: 0}, Signal{CongestionFactor: 0.1})
	require.NoError(t, err)
	route, err = g.ShortestPath(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{{FromID: 1, ToID: 2, Key: 0}}, route.Edges)
	assert.InDelta(t, 1.0, route.Cost, 1e-9)
}

func TestShortestPathUsesCurrentCost(t *testing.T) {
	g := newDiamond(t)
	_, _, err := g.UpdateEdgeWeights(EdgeKey{FromID: 3, ToID: 4}, Signal{CongestionFactor: 0})
	require.NoError(t, err)

	route, err := g.ShortestPath(1, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, route.Nodes)
	assert.Equal(t, 120.0, route.Cost)
}

// randomGraph builds a reproducible network with parallel edges and self loops.
func randomGraph(t *testing.T, seed int64, nodes, edges int) *Graph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	g := NewGraph()
	for i := 0; i < nodes; i++ {
		g.AddNode(Node{ID: int64(i), Latitude: 59.3 + rng.Float64()/100, Longitude: 18.0 + rng.Float64()/100})
	}
	for i := 0; i < edges; i++ {
		from := int64(rng.Intn(nodes))
		to := int64(rng.Intn(nodes))
		mustEdge(t, g, from, to, float64(1+rng.Intn(200)))
	}
	return g
}

// oracle mirrors g into a gonum graph, keeping the cheapest parallel edge.
func oracle(g *Graph) *simple.WeightedDirectedGraph {
	og := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, id := range g.NodeIDs() {
		og.AddNode(simple.Node(id))
	}
	g.ForEachEdge(func(e Edge) {
		if e.FromID == e.ToID {
			return
		}
		if w, ok := og.Weight(e.FromID, e.ToID); ok && w <= e.CurrentCost {
			return
		}
		og.SetWeightedEdge(og.NewWeightedEdge(simple.Node(e.FromID), simple.Node(e.ToID), e.CurrentCost))
	})
	return og
}

func TestShortestPathMatchesOracle(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 2024} {
		g := randomGraph(t, seed, 40, 140)

		// Perturb a few edges so CurrentCost differs from baseline.
		var signals []EdgeSignal
		i := 0
		g.ForEachEdge(func(e Edge) {
			if i%9 == 0 {
				signals = append(signals, EdgeSignal{Edge: e.Ref(), Signal: Signal{CongestionFactor: 3, IncidentPenalty: 50}})
			}
			i++
		})
		_, err := g.ApplySignals(signals)
		require.NoError(t, err)

		og := oracle(g)
		shortest := path.DijkstraFrom(simple.Node(0), og)

		for _, goal := range g.NodeIDs() {
			route, err := g.ShortestPath(0, goal)
			require.NoError(t, err)

			_, want := shortest.To(goal)
			if math.IsInf(want, 1) {
				assert.False(t, route.Found, "seed %d goal %d should be unreachable", seed, goal)
				continue
			}
			require.True(t, route.Found, "seed %d goal %d should be reachable", seed, goal)
			assert.InDelta(t, want, route.Cost, 1e-9, "seed %d goal %d", seed, goal)

			// Path validity: endpoints, existing edges, cost equals the sum.
			assert.Equal(t, int64(0), route.Nodes[0])
			assert.Equal(t, goal, route.Nodes[len(route.Nodes)-1])
			require.Len(t, route.Edges, len(route.Nodes)-1)
			sum := 0.0
			for k, ref := range route.Edges {
				e, ok := g.Edge(ref)
				require.True(t, ok, "edge %s", ref)
				assert.Equal(t, route.Nodes[k], e.FromID)
				assert.Equal(t, route.Nodes[k+1], e.ToID)
				sum += e.CurrentCost
			}
			assert.InDelta(t, route.Cost, sum, 1e-9)
			assert.InDelta(t, route.Cost, g.PathCost(route.Nodes), 1e-9)
		}
	}
}

func TestShortestPathDeterministic(t *testing.T) {
	g := randomGraph(t, 99, 30, 120)
	first, err := g.ShortestPath(0, 29)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := g.ShortestPath(0, 29)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("route changed between runs (-first +again):\n%s", diff)
		}
	}
}

func TestPathCostMissingHop(t *testing.T) {
	g := newDiamond(t)
	assert.True(t, math.IsInf(g.PathCost([]int64{1, 4}), 1))
	assert.Equal(t, 150.0, g.PathCost([]int64{1, 2, 4}))
}
