package graphs_go

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSpeedKPH is used when a segment carries no usable speed attribute.
const DefaultSpeedKPH = 50.0

const mphToKPH = 1.609344

var (
	numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)
	slugPattern   = regexp.MustCompile(`[^a-z0-9]+`)
)

// networkExtensions lists the formats LoadGraphFromFile understands, in the
// order a place name is resolved against the data directory.
var networkExtensions = []string{".json", ".gob", ".db", ".sqlite"}

// LoadNetwork resolves a location descriptor and loads the network behind it.
// A descriptor with a file extension is a path; anything else is a place name
// looked up as <dataDir>/<slug>.<ext>.
func LoadNetwork(descriptor, dataDir string) (*Graph, error) {
	path, err := Locate(descriptor, dataDir)
	if err != nil {
		return nil, loadError(descriptor, err)
	}
	g, err := LoadGraphFromFile(path)
	if err != nil {
		var le *NetworkLoadError
		if errors.As(err, &le) {
			le.Descriptor = descriptor
			return nil, le
		}
		return nil, loadError(descriptor, err)
	}
	return g, nil
}

// Locate maps a descriptor to an existing network file.
func Locate(descriptor, dataDir string) (string, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return "", errors.New("empty location descriptor")
	}
	if filepath.Ext(descriptor) != "" {
		if _, err := os.Stat(descriptor); err != nil {
			return "", fmt.Errorf("could not open graph file: %w", err)
		}
		return descriptor, nil
	}

	slug := Slug(descriptor)
	for _, ext := range networkExtensions {
		candidate := filepath.Join(dataDir, slug+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no network file for %q in %s (looked for %s.{json,gob,db,sqlite})", descriptor, dataDir, slug)
}

// Slug turns a place name such as "Norrmalm, Stockholm, Sweden" into
// "norrmalm-stockholm-sweden".
func Slug(place string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(place), "-")
	return strings.Trim(s, "-")
}

// LoadGraphFromFile loads a network file, choosing the decoder by extension.
func LoadGraphFromFile(path string) (*Graph, error) {
	var (
		g   *Graph
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, loadError(path, fmt.Errorf("could not read graph file: %w", err))
		}
		g, err = LoadGraphFromJSON(data)
	case ".gob":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, loadError(path, fmt.Errorf("could not open graph file: %w", err))
		}
		defer f.Close()
		g, err = LoadGraphFromGob(f)
	case ".db", ".sqlite":
		g, err = LoadGraphFromSQLite(path)
	default:
		err = fmt.Errorf("unsupported network file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, loadError(path, err)
	}
	return g, nil
}

type nodeLinkNode struct {
	ID          interface{} `json:"id"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	StreetCount int         `json:"street_count"`
}

type nodeLinkEdge struct {
	Source     interface{} `json:"source"`
	Target     interface{} `json:"target"`
	Length     float64     `json:"length"`
	MaxSpeed   interface{} `json:"maxspeed"`
	SpeedKPH   float64     `json:"speed_kph"`
	TravelTime float64     `json:"travel_time"`
	Name       interface{} `json:"name"`
}

type nodeLinkGraph struct {
	Nodes []nodeLinkNode `json:"nodes"`
	Links []nodeLinkEdge `json:"links"`
	Edges []nodeLinkEdge `json:"edges"`
}

// LoadGraphFromJSON parses an osmnx node-link export. Both the bare layout
// (nodes/links at top level) and the wrapped {"graph": {...}} layout are
// accepted; networkx >= 3.4 writes "edges" instead of "links".
func LoadGraphFromJSON(data []byte) (*Graph, error) {
	var wrapped struct {
		nodeLinkGraph
		Graph *nodeLinkGraph `json:"graph"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse graph JSON: %w", err)
	}

	src := wrapped.nodeLinkGraph
	if len(src.Nodes) == 0 && wrapped.Graph != nil {
		src = *wrapped.Graph
	}
	if len(src.Nodes) == 0 {
		return nil, ErrEmptyNetwork
	}

	g := NewGraph()
	for _, n := range src.Nodes {
		g.AddNode(Node{
			ID:          parseID(n.ID),
			Latitude:    n.Y,
			Longitude:   n.X,
			StreetCount: n.StreetCount,
		})
	}

	links := src.Links
	if len(links) == 0 {
		links = src.Edges
	}
	for _, e := range links {
		speed := e.SpeedKPH
		if speed <= 0 {
			speed = parseSpeed(e.MaxSpeed)
		}
		edge := Edge{
			FromID:       parseID(e.Source),
			ToID:         parseID(e.Target),
			Length:       e.Length,
			MaxSpeed:     speed,
			Name:         parseName(e.Name),
			BaselineCost: baselineCost(e.Length, speed, e.TravelTime),
		}
		if _, err := g.AddEdge(edge); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// baselineCost prefers an explicit travel time and otherwise derives one
// from length (m) and speed (km/h).
func baselineCost(length, speedKPH, travelTime float64) float64 {
	if travelTime > 0 {
		return travelTime
	}
	if speedKPH <= 0 {
		speedKPH = DefaultSpeedKPH
	}
	return length / (speedKPH / 3.6)
}

func parseSpeed(speed interface{}) float64 {
	switch v := speed.(type) {
	case float64:
		if v > 0 {
			return v
		}
		return DefaultSpeedKPH
	case string:
		match := numberPattern.FindString(v)
		if match == "" {
			return DefaultSpeedKPH
		}
		parsed, err := strconv.ParseFloat(match, 64)
		if err != nil || parsed <= 0 {
			return DefaultSpeedKPH
		}
		if strings.Contains(strings.ToLower(v), "mph") {
			return parsed * mphToKPH
		}
		return parsed
	case []interface{}:
		if len(v) > 0 {
			return parseSpeed(v[0])
		}
		return DefaultSpeedKPH
	default:
		return DefaultSpeedKPH
	}
}

// parseID converts the id forms found in node-link exports to int64.
func parseID(id interface{}) int64 {
	switch v := id.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
		h := fnv.New64a()
		h.Write([]byte(v))
		return int64(h.Sum64() >> 1)
	default:
		return 0
	}
}

func parseName(name interface{}) string {
	switch v := name.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " / ")
	default:
		return ""
	}
}

type gobNetwork struct {
	Nodes []Node
	Edges []Edge
}

// SaveGob writes g in the format read by LoadGraphFromGob.
func SaveGob(g *Graph, w io.Writer) error {
	snap := gobNetwork{Nodes: make([]Node, 0, g.NodeCount()), Edges: make([]Edge, 0, g.EdgeCount())}
	for _, id := range g.order {
		snap.Nodes = append(snap.Nodes, g.nodes[id])
	}
	g.ForEachEdge(func(e Edge) {
		e.CurrentCost = e.BaselineCost
		snap.Edges = append(snap.Edges, e)
	})
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

func LoadGraphFromGob(r io.Reader) (*Graph, error) {
	var snap gobNetwork
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if len(snap.Nodes) == 0 {
		return nil, ErrEmptyNetwork
	}
	g := NewGraph()
	for _, n := range snap.Nodes {
		g.AddNode(n)
	}
	for _, e := range snap.Edges {
		if _, err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}
