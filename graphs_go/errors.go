package graphs_go

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound  = errors.New("graph: node not found")
	ErrEdgeNotFound  = errors.New("graph: edge not found")
	ErrEmptyNetwork  = errors.New("graph: network has no nodes")
	ErrInvalidCost   = errors.New("graph: edge cost must be finite and non-negative")
	ErrNoEdges       = errors.New("graph: node has no outgoing edges")
	ErrInvalidSignal = errors.New("graph: invalid signal")
	ErrNetworkLoad   = errors.New("graph: network load failed")

	ErrInvalidCoordinate = errors.New("graph: invalid coordinate")
)

// NetworkLoadError is returned by every loader when a descriptor cannot be
// turned into a usable network. Startup treats it as fatal.
type NetworkLoadError struct {
	Descriptor string
	Err        error
}

func (e *NetworkLoadError) Error() string {
	return fmt.Sprintf("could not load road network %q: %v", e.Descriptor, e.Err)
}

func (e *NetworkLoadError) Unwrap() error { return e.Err }

func (e *NetworkLoadError) Is(target error) bool { return target == ErrNetworkLoad }

func loadError(descriptor string, err error) error {
	return &NetworkLoadError{Descriptor: descriptor, Err: err}
}

// NoEdgesError reports that the node chosen for a monitor has no outgoing edge.
type NoEdgesError struct {
	NodeID int64
}

func (e *NoEdgesError) Error() string {
	return fmt.Sprintf("node %d has no outgoing edges to monitor", e.NodeID)
}

func (e *NoEdgesError) Is(target error) bool { return target == ErrNoEdges }

// InvalidSignalError rejects a negative or non-finite congestion factor or
// incident penalty. The graph is never mutated when it is returned.
type InvalidSignalError struct {
	Field string
	Value float64
}

func (e *InvalidSignalError) Error() string {
	return fmt.Sprintf("invalid %s %v: must be a finite value >= 0", e.Field, e.Value)
}

func (e *InvalidSignalError) Is(target error) bool { return target == ErrInvalidSignal }
