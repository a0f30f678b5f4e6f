package graphs_go

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A trimmed osmnx export: bare node-link layout, string speeds, list names,
// one link with travel_time and two parallel 1->2 segments.
const bareNodeLink = `{
  "directed": true,
  "multigraph": true,
  "graph": {"crs": "epsg:4326"},
  "nodes": [
    {"id": 101, "x": 18.0581, "y": 59.3300, "street_count": 3},
    {"id": 102, "x": 18.0620, "y": 59.3310, "street_count": 4},
    {"id": 103, "x": 18.0716, "y": 59.3307, "street_count": 2}
  ],
  "links": [
    {"source": 101, "target": 102, "key": 0, "length": 250, "maxspeed": "30", "name": "Vasagatan"},
    {"source": 101, "target": 102, "key": 1, "length": 300, "maxspeed": ["50", "30"], "name": ["Kungsgatan", "Sveavägen"]},
    {"source": 102, "target": 103, "key": 0, "length": 400, "travel_time": 42.5},
    {"source": 103, "target": 101, "key": 0, "length": 180, "maxspeed": "20 mph"}
  ]
}`

const wrappedNodeLink = `{
  "graph": {
    "nodes": [
      {"id": "1", "x": 18.0, "y": 59.0},
      {"id": "2", "x": 18.1, "y": 59.1}
    ],
    "edges": [
      {"source": "1", "target": "2", "length": 360, "speed_kph": 36}
    ]
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadGraphFromJSONBare(t *testing.T) {
	g, err := LoadGraphFromJSON([]byte(bareNodeLink))
	require.NoError(t, err)

	assert.Equal(t, []int64{101, 102, 103}, g.NodeIDs())
	assert.Equal(t, 4, g.EdgeCount())

	n, ok := g.Node(101)
	require.True(t, ok)
	assert.Equal(t, 59.3300, n.Latitude)
	assert.Equal(t, 18.0581, n.Longitude)
	assert.Equal(t, 3, n.StreetCount)

	e, ok := g.Edge(EdgeKey{FromID: 101, ToID: 102, Key: 0})
	require.True(t, ok)
	assert.Equal(t, "Vasagatan", e.Name)
	assert.InDelta(t, 250/(30/3.6), e.BaselineCost, 1e-9)

	e, ok = g.Edge(EdgeKey{FromID: 101, ToID: 102, Key: 1})
	require.True(t, ok)
	assert.Equal(t, "Kungsgatan / Sveavägen", e.Name)
	assert.InDelta(t, 300/(50/3.6), e.BaselineCost, 1e-9)

	e, ok = g.Edge(EdgeKey{FromID: 102, ToID: 103})
	require.True(t, ok)
	assert.Equal(t, 42.5, e.BaselineCost)
	assert.Equal(t, 42.5, e.CurrentCost)

	e, ok = g.Edge(EdgeKey{FromID: 103, ToID: 101})
	require.True(t, ok)
	assert.InDelta(t, 20*mphToKPH, e.MaxSpeed, 1e-9)
}

func TestLoadGraphFromJSONWrapped(t *testing.T) {
	g, err := LoadGraphFromJSON([]byte(wrappedNodeLink))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, g.NodeIDs())

	e, ok := g.Edge(EdgeKey{FromID: 1, ToID: 2})
	require.True(t, ok)
	assert.InDelta(t, 36.0, e.BaselineCost, 1e-9)
}

func TestLoadGraphFromJSONErrors(t *testing.T) {
	_, err := LoadGraphFromJSON([]byte(`{"nodes": []}`))
	assert.ErrorIs(t, err, ErrEmptyNetwork)

	_, err = LoadGraphFromJSON([]byte(`not json`))
	assert.Error(t, err)

	_, err = LoadGraphFromJSON([]byte(`{"nodes":[{"id":1}],"links":[{"source":1,"target":2,"length":5}]}`))
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestParseSpeed(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
	}{
		{nil, DefaultSpeedKPH},
		{"", DefaultSpeedKPH},
		{"signals", DefaultSpeedKPH},
		{"40", 40},
		{"70 km/h", 70},
		{"30 mph", 30 * mphToKPH},
		{[]interface{}{"60", "40"}, 60},
		{[]interface{}{}, DefaultSpeedKPH},
		{float64(90), 90},
		{float64(0), DefaultSpeedKPH},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseSpeed(tt.in), 1e-9, "%v", tt.in)
	}
}

func TestBaselineCost(t *testing.T) {
	assert.Equal(t, 12.0, baselineCost(1000, 50, 12))
	assert.InDelta(t, 72.0, baselineCost(1000, 50, 0), 1e-9)
	assert.InDelta(t, 72.0, baselineCost(1000, 0, 0), 1e-9)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "norrmalm-stockholm-sweden", Slug("Norrmalm, Stockholm, Sweden"))
	assert.Equal(t, "a-b", Slug("  A -- B  "))
}

func TestLoadNetworkByPlaceName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "norrmalm-stockholm-sweden.json", bareNodeLink)

	g, err := LoadNetwork("Norrmalm, Stockholm, Sweden", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
}

func TestLoadNetworkByPath(t *testing.T) {
	p := writeFile(t, t.TempDir(), "custom.json", wrappedNodeLink)
	g, err := LoadNetwork(p, "ignored")
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())
}

func TestLoadNetworkFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.json", `{"nodes": [], "links": []}`)
	writeFile(t, dir, "broken.json", `{"nodes": [`)
	writeFile(t, dir, "network.txt", `nodes`)

	for _, descriptor := range []string{
		"",
		"Atlantis",
		filepath.Join(dir, "missing.json"),
		filepath.Join(dir, "empty.json"),
		filepath.Join(dir, "broken.json"),
		filepath.Join(dir, "network.txt"),
	} {
		_, err := LoadNetwork(descriptor, dir)
		require.Error(t, err, descriptor)
		assert.ErrorIs(t, err, ErrNetworkLoad, descriptor)

		var le *NetworkLoadError
		require.True(t, errors.As(err, &le), descriptor)
		assert.Equal(t, descriptor, le.Descriptor)
	}

	_, err := LoadNetwork(filepath.Join(dir, "empty.json"), dir)
	assert.ErrorIs(t, err, ErrEmptyNetwork)
}

func snapshot(g *Graph) ([]Node, []Edge) {
	var nodes []Node
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		nodes = append(nodes, n)
	}
	var edges []Edge
	g.ForEachEdge(func(e Edge) { edges = append(edges, e) })
	return nodes, edges
}

func TestGobRoundTrip(t *testing.T) {
	g, err := LoadGraphFromJSON([]byte(bareNodeLink))
	require.NoError(t, err)
	_, _, err = g.UpdateEdgeWeights(EdgeKey{FromID: 101, ToID: 102}, Signal{CongestionFactor: 3, IncidentPenalty: 2000})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, SaveGob(g, &buf))

	// Saved networks carry baselines only.
	_, err = g.ApplySignals(nil)
	require.NoError(t, err)

	dir := t.TempDir()
	p := writeFile(t, dir, "net.gob", buf.String())
	loaded, err := LoadNetwork(p, dir)
	require.NoError(t, err)

	wantNodes, wantEdges := snapshot(g)
	gotNodes, gotEdges := snapshot(loaded)
	if diff := cmp.Diff(wantNodes, gotNodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantEdges, gotEdges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	g, err := LoadGraphFromJSON([]byte(bareNodeLink))
	require.NoError(t, err)

	dir := t.TempDir()
	p := filepath.Join(dir, "norrmalm.db")
	require.NoError(t, SaveSQLite(context.Background(), g, p))
	// Saving twice replaces rather than appends.
	require.NoError(t, SaveSQLite(context.Background(), g, p))

	loaded, err := LoadNetwork("Norrmalm", dir)
	require.NoError(t, err)

	wantNodes, wantEdges := snapshot(g)
	gotNodes, gotEdges := snapshot(loaded)
	if diff := cmp.Diff(wantNodes, gotNodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantEdges, gotEdges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadGraphFromSQLiteMissingFile(t *testing.T) {
	_, err := LoadGraphFromSQLite(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
