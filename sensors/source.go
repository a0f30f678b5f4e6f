// Package sensors produces the congestion and incident signals that drive
// edge costs. Each source is a stand-in for a model: the simulated ones
// reproduce the demo behaviour, FileSource replays a JSON file and
// ModelClient asks a remote inference service.
package sensors

import (
	"context"
	"strings"
)

// Congestion statuses reported alongside the factor.
const (
	StatusFreeFlow = "Free Flow"
	StatusModerate = "Moderate"
	StatusHeavyJam = "Heavy Jam"
)

// Incident severities.
const (
	SeverityCritical = "CRITICAL ACCIDENT"
	SeverityWarning  = "WARNING"
	SeverityClear    = "Clear"
)

// Penalties in seconds added to a monitored edge per severity.
const (
	PenaltyCritical = 2000.0
	PenaltyWarning  = 500.0
	PenaltyClear    = 0.0
)

type CongestionReading struct {
	VehicleCount int     `json:"vehicle_count"`
	Factor       float64 `json:"congestion_factor"`
	Status       string  `json:"status"`
}

type IncidentReading struct {
	Text     string  `json:"text"`
	Severity string  `json:"severity"`
	Penalty  float64 `json:"penalty"`
}

// CongestionSource reports how congested the monitored road is right now.
type CongestionSource interface {
	ProduceCongestion(ctx context.Context) (CongestionReading, error)
}

// IncidentSource reports the latest incident affecting the monitored road.
type IncidentSource interface {
	ProduceIncident(ctx context.Context) (IncidentReading, error)
}

// CongestionFromCount maps a vehicle count to a congestion factor.
func CongestionFromCount(count int) (float64, string) {
	switch {
	case count < 10:
		return 1.0, StatusFreeFlow
	case count < 30:
		return 1.5, StatusModerate
	default:
		return 3.0, StatusHeavyJam
	}
}

// ClassifyIncident maps a free-text report to a severity and penalty.
// Matching is case-sensitive on the upper-case keywords.
func ClassifyIncident(text string) (string, float64) {
	switch {
	case strings.Contains(text, "ACCIDENT") || strings.Contains(text, "collision"):
		return SeverityCritical, PenaltyCritical
	case strings.Contains(text, "JAM") || strings.Contains(text, "construction"):
		return SeverityWarning, PenaltyWarning
	default:
		return SeverityClear, PenaltyClear
	}
}

func congestionReading(count int) CongestionReading {
	factor, status := CongestionFromCount(count)
	return CongestionReading{VehicleCount: count, Factor: factor, Status: status}
}

func incidentReading(text string) IncidentReading {
	severity, penalty := ClassifyIncident(text)
	return IncidentReading{Text: text, Severity: severity, Penalty: penalty}
}
