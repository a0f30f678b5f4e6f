package models

import "github.com/stockholm-raps/RouteServer/graphs_go"

// Location is a WGS84 point as sent by clients. Pointers distinguish a
// missing coordinate from 0.
type Location struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

func NewLocation(c graphs_go.Coordinate) Location {
	lat, lon := c.Latitude, c.Longitude
	return Location{Latitude: &lat, Longitude: &lon}
}

func (l Location) Coordinate() graphs_go.Coordinate {
	var c graphs_go.Coordinate
	if l.Latitude != nil {
		c.Latitude = *l.Latitude
	}
	if l.Longitude != nil {
		c.Longitude = *l.Longitude
	}
	return c
}

type RouteRequest struct {
	Origin      *Location `json:"origin" validate:"required"`
	Destination *Location `json:"destination" validate:"required"`
}

// SignalRequest applies one reading to a sensor's edges. An empty SensorID
// targets the primary camera. Range checks happen in the engine so that
// negative values surface as INVALID_SIGNAL rather than a generic 400.
type SignalRequest struct {
	SensorID         string   `json:"sensor_id,omitempty"`
	CongestionFactor *float64 `json:"congestion_factor" validate:"required"`
	IncidentPenalty  *float64 `json:"incident_penalty" validate:"required"`
}

type AIModeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SettingsRequest mirrors the dashboard sidebar: AI rerouting and the
// refresh interval in seconds.
type SettingsRequest struct {
	AIMode         *bool `json:"ai_mode,omitempty"`
	RefreshSeconds *int  `json:"refresh_seconds,omitempty" validate:"omitempty,min=1,max=5"`
}
