package models

import (
	"time"

	"github.com/stockholm-raps/RouteServer/graphs_go"
)

const ApiVersion = "v1"

type ApiResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ApiError   `json:"error,omitempty"`
	Meta      *MetaData   `json:"meta,omitempty"`
	RequestID string      `json:"request_id"`
}

type ApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidSignal  = "INVALID_SIGNAL"
	CodeNotFound       = "NOT_FOUND"
	CodeUnknownSensor  = "UNKNOWN_SENSOR"
	CodeInternal       = "INTERNAL_ERROR"
)

type MetaData struct {
	ProcessTime string   `json:"process_time_ms"`
	ApiVersion  string   `json:"api_version"`
	ResultCount *int     `json:"result_count,omitempty"`
	TotalCost   *float64 `json:"total_cost_seconds,omitempty"`
}

type RouteResponse struct {
	Origin      Location        `json:"origin"`
	Destination Location        `json:"destination"`
	Route       graphs_go.Route `json:"route"`
	Path        []Location      `json:"path,omitempty"`
	Summary     string          `json:"summary"`
	ComputedAt  time.Time       `json:"computed_at"`
}

type NodeResponse struct {
	ID          int64    `json:"id"`
	Location    Location `json:"location"`
	StreetCount int      `json:"street_count"`
}

type SignalResponse struct {
	SensorID string                 `json:"sensor_id"`
	Changes  []graphs_go.CostChange `json:"changes"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	AIMode   bool   `json:"ai_mode"`
	Uptime   string `json:"uptime"`
	Sequence uint64 `json:"last_cycle,omitempty"`
}
