package models

import (
	"time"

	"github.com/stockholm-raps/RouteServer/services"
)

// DashboardResponse is the live feed the dashboard renders each refresh.
type DashboardResponse struct {
	Running        bool                     `json:"simulation_running"`
	AIMode         bool                     `json:"ai_mode"`
	RefreshSeconds int                      `json:"refresh_seconds"`
	StartedAt      *time.Time               `json:"started_at,omitempty"`
	Start          Location                 `json:"start"`
	End            Location                 `json:"end"`
	Cycle          *services.CycleResult    `json:"cycle,omitempty"`
	Monitors       []services.MonitoredEdge `json:"monitors"`
	Message        string                   `json:"message,omitempty"`
}

type SettingsResponse struct {
	AIMode         bool `json:"ai_mode"`
	RefreshSeconds int  `json:"refresh_seconds"`
	Running        bool `json:"simulation_running"`
}
