package graphs_go

import (
	"fmt"
	"strings"
)

// BindingRule selects how a sensor is attached to a road segment.
type BindingRule string

const (
	// BindFirst takes the first outgoing edge of the first node in canonical
	// order. It does not correspond to any real camera position.
	BindFirst BindingRule = "first-edge"
	// BindExplicit names the edge directly.
	BindExplicit BindingRule = "edge"
	// BindNearest takes the first outgoing edge of the node nearest a coordinate.
	BindNearest BindingRule = "nearest"
)

func ParseBindingRule(s string) (BindingRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first-edge":
		return BindFirst, nil
	case "edge", "explicit":
		return BindExplicit, nil
	case "nearest", "near":
		return BindNearest, nil
	default:
		return "", fmt.Errorf("unknown binding rule %q", s)
	}
}

// Binding describes where a sensor sits on the network.
type Binding struct {
	Rule     BindingRule
	Edge     EdgeKey
	Location Coordinate
}

// Bind resolves b to an existing edge of g.
func (g *Graph) Bind(b Binding) (EdgeKey, error) {
	switch b.Rule {
	case BindFirst, "":
		return g.BindFirstEdge()
	case BindExplicit:
		if !g.HasEdge(b.Edge) {
			return EdgeKey{}, fmt.Errorf("monitor edge %s: %w", b.Edge, ErrEdgeNotFound)
		}
		return b.Edge, nil
	case BindNearest:
		id, _, err := g.NearestNode(b.Location)
		if err != nil {
			return EdgeKey{}, err
		}
		return g.firstEdgeOf(id)
	default:
		return EdgeKey{}, fmt.Errorf("unknown binding rule %q", b.Rule)
	}
}

// BindFirstEdge picks the first node in canonical order and its first
// outgoing edge.
func (g *Graph) BindFirstEdge() (EdgeKey, error) {
	if len(g.order) == 0 {
		return EdgeKey{}, ErrEmptyNetwork
	}
	return g.firstEdgeOf(g.order[0])
}

func (g *Graph) firstEdgeOf(id int64) (EdgeKey, error) {
	list := g.edges[id]
	if len(list) == 0 {
		return EdgeKey{}, &NoEdgesError{NodeID: id}
	}
	return list[0].Ref(), nil
}
