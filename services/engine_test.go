package services

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/graphs_go"
)

var (
	origin      = graphs_go.Coordinate{Latitude: 59.3300, Longitude: 18.0581}
	destination = graphs_go.Coordinate{Latitude: 59.3307, Longitude: 18.0716}
	cameraEdge  = graphs_go.EdgeKey{FromID: 1, ToID: 2}
	sideEdge    = graphs_go.EdgeKey{FromID: 3, ToID: 4}
)

// diamond: 1->2->4 costs 150, 1->3->4 costs 180.
func diamond(t *testing.T) *graphs_go.Graph {
	t.Helper()
	g := graphs_go.NewGraph()
	g.AddNode(graphs_go.Node{ID: 1, Latitude: origin.Latitude, Longitude: origin.Longitude})
	g.AddNode(graphs_go.Node{ID: 2, Latitude: 59.3310, Longitude: 18.0620})
	g.AddNode(graphs_go.Node{ID: 3, Latitude: 59.3290, Longitude: 18.0640})
	g.AddNode(graphs_go.Node{ID: 4, Latitude: destination.Latitude, Longitude: destination.Longitude})
	for _, e := range []graphs_go.Edge{
		{FromID: 1, ToID: 2, BaselineCost: 100, Name: "Drottninggatan"},
		{FromID: 2, ToID: 4, BaselineCost: 50},
		{FromID: 1, ToID: 3, BaselineCost: 120},
		{FromID: 3, ToID: 4, BaselineCost: 60},
	} {
		_, err := g.AddEdge(e)
		require.NoError(t, err)
	}
	return g
}

func newEngine(t *testing.T, metrics *Metrics) *AdaptiveEngine {
	t.Helper()
	e, err := NewAdaptiveEngine(diamond(t), []Monitor{
		{SensorID: "CAM_01", Edges: []graphs_go.EdgeKey{cameraEdge}},
		{SensorID: "CAM_02", Edges: []graphs_go.EdgeKey{sideEdge}},
	}, zap.NewNop(), metrics)
	require.NoError(t, err)
	return e
}

func TestNewAdaptiveEngineValidatesMonitors(t *testing.T) {
	g := diamond(t)
	cases := map[string][]Monitor{
		"none":      nil,
		"no id":     {{Edges: []graphs_go.EdgeKey{cameraEdge}}},
		"no edges":  {{SensorID: "CAM_01"}},
		"duplicate": {{SensorID: "A", Edges: []graphs_go.EdgeKey{cameraEdge}}, {SensorID: "A", Edges: []graphs_go.EdgeKey{sideEdge}}},
		"bad edge":  {{SensorID: "A", Edges: []graphs_go.EdgeKey{{FromID: 4, ToID: 1}}}},
		"bad key":   {{SensorID: "A", Edges: []graphs_go.EdgeKey{{FromID: 1, ToID: 2, Key: 1}}}},
	}
	for name, monitors := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewAdaptiveEngine(g, monitors, zap.NewNop(), nil)
			assert.Error(t, err)
		})
	}
}

func TestEngineUpdateScenarios(t *testing.T) {
	e := newEngine(t, nil)

	baseline, cost, err := e.Update(1.0, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, baseline)
	assert.Equal(t, 100.0, cost)

	baseline, cost, err = e.Update(3.0, 2000)
	require.NoError(t, err)
	assert.Equal(t, 100.0, baseline)
	assert.Equal(t, 2300.0, cost)

	route, err := e.ResolveRoute(origin, destination)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, route.Nodes)

	_, _, err = e.Update(-1.0, 0)
	assert.ErrorIs(t, err, graphs_go.ErrInvalidSignal)
	edge, err := e.EdgeCost(cameraEdge)
	require.NoError(t, err)
	assert.Equal(t, 2300.0, edge.CurrentCost)
}

func TestEngineApplyReadings(t *testing.T) {
	e := newEngine(t, nil)

	changes, err := e.ApplyReadings(map[string]graphs_go.Signal{
		"CAM_01": {CongestionFactor: 1.5, IncidentPenalty: 500},
		"CAM_02": {CongestionFactor: 2},
	})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, cameraEdge, changes[0].Edge)
	assert.Equal(t, 650.0, changes[0].Cost)
	assert.Equal(t, sideEdge, changes[1].Edge)
	assert.Equal(t, 120.0, changes[1].Cost)

	// A monitor missing from the next pass drops back to baseline.
	_, err = e.ApplyReadings(map[string]graphs_go.Signal{"CAM_01": graphs_go.ClearSignal})
	require.NoError(t, err)
	side, _ := e.EdgeCost(sideEdge)
	assert.Equal(t, 60.0, side.CurrentCost)

	_, err = e.ApplyReadings(map[string]graphs_go.Signal{"CAM_99": graphs_go.ClearSignal})
	assert.ErrorIs(t, err, ErrUnknownSensor)
}

func TestEngineMonitoredEdges(t *testing.T) {
	e := newEngine(t, nil)
	_, _, err := e.Update(3.0, 0)
	require.NoError(t, err)

	got := e.MonitoredEdges()
	require.Len(t, got, 2)
	assert.Equal(t, MonitoredEdge{SensorID: "CAM_01", Edge: cameraEdge, Name: "Drottninggatan", BaselineCost: 100, CurrentCost: 300}, got[0])
	assert.Equal(t, 60.0, got[1].CurrentCost)

	monitors := e.Monitors()
	monitors[0].Edges[0] = sideEdge
	m, err := e.Monitor("CAM_01")
	require.NoError(t, err)
	assert.Equal(t, cameraEdge, m.Edges[0])
	assert.Equal(t, "CAM_01", e.PrimarySensor())
}

func TestEngineLookups(t *testing.T) {
	e := newEngine(t, nil)

	coords, err := e.Coordinates([]int64{1, 4})
	require.NoError(t, err)
	assert.Equal(t, []graphs_go.Coordinate{origin, destination}, coords)

	_, err = e.Coordinates([]int64{1, 42})
	assert.ErrorIs(t, err, graphs_go.ErrNodeNotFound)

	_, err = e.Node(42)
	assert.ErrorIs(t, err, graphs_go.ErrNodeNotFound)

	_, err = e.EdgeCost(graphs_go.EdgeKey{FromID: 4, ToID: 1})
	assert.ErrorIs(t, err, graphs_go.ErrEdgeNotFound)

	nodes, edges := e.Stats()
	assert.Equal(t, 4, nodes)
	assert.Equal(t, 4, edges)
}

func TestEngineMetrics(t *testing.T) {
	m := NewMetrics("test")
	e := newEngine(t, m)

	_, _, err := e.Update(3.0, 2000)
	require.NoError(t, err)
	_, _, err = e.Update(-1, 0)
	require.Error(t, err)
	require.NoError(t, e.Reset())
	_, err = e.ResolveRoute(origin, destination)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(OutcomeReset)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidSignals))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Routes.WithLabelValues("found")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.RouteCost))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.EdgeCost.WithLabelValues("CAM_01", cameraEdge.String())))
}

// Readers must only ever see a fully reset-and-applied network.
func TestEngineConcurrentUpdatesAndRoutes(t *testing.T) {
	e := newEngine(t, nil)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if (i+w)%2 == 0 {
					_, _, _ = e.Update(3.0, 2000)
				} else {
					_, _, _ = e.Update(1.0, 0)
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				route, err := e.ResolveRoute(origin, destination)
				if !assert.NoError(t, err) {
					return
				}
				// Either the clear route or the detour, never a mix.
				if route.Cost != 150 && route.Cost != 180 {
					t.Errorf("unexpected route cost %v", route.Cost)
					return
				}
			}
		}()
	}
	wg.Wait()
}
