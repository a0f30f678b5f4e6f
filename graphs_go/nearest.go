package graphs_go

import (
	"fmt"
	"math"
)

const earthRadiusM = 6371000.0

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineDistance returns the great-circle distance in metres.
func HaversineDistance(a, b Coordinate) float64 {
	phi1 := toRadians(a.Latitude)
	phi2 := toRadians(b.Latitude)
	deltaPhi := toRadians(b.Latitude - a.Latitude)
	deltaLambda := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// NearestNode snaps coord to the closest node by great-circle distance.
// Equidistant nodes resolve to the lowest id.
func (g *Graph) NearestNode(coord Coordinate) (int64, float64, error) {
	if len(g.order) == 0 {
		return 0, 0, ErrEmptyNetwork
	}
	if math.IsNaN(coord.Latitude) || math.IsNaN(coord.Longitude) {
		return 0, 0, fmt.Errorf("coordinate %v: %w", coord, ErrInvalidCoordinate)
	}

	var nearest int64
	minDistance := math.Inf(1)
	for _, id := range g.order {
		d := HaversineDistance(coord, g.nodes[id].Coordinate())
		if d < minDistance || (d == minDistance && id < nearest) {
			minDistance = d
			nearest = id
		}
	}
	return nearest, minDistance, nil
}
