package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/graphs_go"
	"github.com/stockholm-raps/RouteServer/sensors"
)

// StatusAIDisabled replaces the sensor statuses while AI mode is off.
const StatusAIDisabled = "AI Disabled"

// Route colours for rendering: red when the planner is routing around a
// penalised camera edge, blue otherwise.
const (
	RouteColorNormal   = "blue"
	RouteColorRerouted = "red"
)

type PlannerConfig struct {
	Origin      graphs_go.Coordinate
	Destination graphs_go.Coordinate
	// CameraID is the sensor the congestion and incident readings apply to.
	CameraID string
	AIMode   bool
}

// CycleResult is everything one sense, update and route pass produced.
type CycleResult struct {
	ID        string        `json:"id"`
	Sequence  uint64        `json:"sequence"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	AIMode    bool          `json:"ai_mode"`

	VehicleCount     int     `json:"vehicle_count"`
	CongestionFactor float64 `json:"congestion_factor"`
	TrafficStatus    string  `json:"traffic_status"`

	IncidentText    string  `json:"incident_text"`
	IncidentType    string  `json:"incident_type"`
	IncidentPenalty float64 `json:"incident_penalty"`

	CameraID       string                 `json:"camera_id"`
	CameraEdge     graphs_go.EdgeKey      `json:"camera_edge"`
	CameraLocation graphs_go.Coordinate   `json:"camera_location"`
	BaselineCost   float64                `json:"baseline_cost"`
	CurrentCost    float64                `json:"current_cost"`
	PenaltyApplied bool                   `json:"penalty_applied"`
	Changes        []graphs_go.CostChange `json:"changes,omitempty"`

	Origin           graphs_go.Coordinate   `json:"origin"`
	Destination      graphs_go.Coordinate   `json:"destination"`
	Route            graphs_go.Route        `json:"route"`
	RouteCoordinates []graphs_go.Coordinate `json:"route_coordinates,omitempty"`
	RouteColor       string                 `json:"route_color"`

	// Error is set when this cycle's readings were discarded.
	Error string `json:"error,omitempty"`
}

// Planner runs the sense, update and route loop against an engine.
type Planner struct {
	engine     *AdaptiveEngine
	congestion sensors.CongestionSource
	incident   sensors.IncidentSource
	cfg        PlannerConfig
	logger     *zap.Logger
	metrics    *Metrics

	mu       sync.RWMutex
	aiMode   bool
	interval time.Duration
	latest   *CycleResult
	sequence uint64
	runMu    sync.Mutex
}

func NewPlanner(engine *AdaptiveEngine, congestion sensors.CongestionSource, incident sensors.IncidentSource, cfg PlannerConfig, logger *zap.Logger, metrics *Metrics) (*Planner, error) {
	if cfg.CameraID == "" {
		cfg.CameraID = engine.PrimarySensor()
	}
	if _, err := engine.Monitor(cfg.CameraID); err != nil {
		return nil, err
	}
	return &Planner{
		engine:     engine,
		congestion: congestion,
		incident:   incident,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		aiMode:     cfg.AIMode,
		interval:   2 * time.Second,
	}, nil
}

func (p *Planner) SetAIMode(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aiMode = enabled
}

func (p *Planner) AIMode() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.aiMode
}

// SetInterval changes the pause between cycles of Run. It takes effect
// after the current pause.
func (p *Planner) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

func (p *Planner) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

// Latest returns the most recent cycle, or nil before the first one.
func (p *Planner) Latest() *CycleResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// RunOnce performs one cycle. Sensor failures and rejected signals are
// recorded on the result and leave the network as it was; the route is
// still resolved. The returned error is reserved for failures that leave
// no usable result.
func (p *Planner) RunOnce(ctx context.Context) (*CycleResult, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	aiMode := p.AIMode()
	res := &CycleResult{
		ID:          uuid.NewString(),
		StartedAt:   time.Now(),
		AIMode:      aiMode,
		CameraID:    p.cfg.CameraID,
		Origin:      p.cfg.Origin,
		Destination: p.cfg.Destination,
	}

	// Sense.
	congestion, congErr := p.congestion.ProduceCongestion(ctx)
	incident, incErr := p.incident.ProduceIncident(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.VehicleCount = congestion.VehicleCount
	res.CongestionFactor = congestion.Factor
	res.TrafficStatus = congestion.Status
	res.IncidentText = incident.Text
	res.IncidentType = incident.Severity
	res.IncidentPenalty = incident.Penalty

	// Think.
	switch {
	case !aiMode:
		res.TrafficStatus = StatusAIDisabled
		res.IncidentType = StatusAIDisabled
		// Resets every edge, not only the primary monitor's.
		if _, _, err := p.engine.Update(1.0, 0); err != nil {
			return nil, fmt.Errorf("could not reset costs: %w", err)
		}
	case congErr != nil || incErr != nil:
		res.Error = joinErrors(congErr, incErr)
		p.logger.Warn("Sensor read failed, keeping previous costs",
			zap.String("cycle", res.ID),
			zap.String("error", res.Error),
		)
	default:
		changes, err := p.engine.ApplyReadings(map[string]graphs_go.Signal{
			p.cfg.CameraID: {CongestionFactor: congestion.Factor, IncidentPenalty: incident.Penalty},
		})
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Changes = changes
		}
	}

	monitor, err := p.engine.Monitor(p.cfg.CameraID)
	if err != nil {
		return nil, err
	}
	res.CameraEdge = monitor.Edges[0]
	edge, err := p.engine.EdgeCost(res.CameraEdge)
	if err != nil {
		return nil, err
	}
	res.BaselineCost = edge.BaselineCost
	res.CurrentCost = edge.CurrentCost
	res.PenaltyApplied = edge.CurrentCost > edge.BaselineCost
	if res.CameraLocation, err = p.engine.Coordinate(edge.FromID); err != nil {
		return nil, err
	}

	// Act.
	route, err := p.engine.ResolveRoute(p.cfg.Origin, p.cfg.Destination)
	if err != nil {
		return nil, fmt.Errorf("could not resolve route: %w", err)
	}
	res.Route = route
	if route.Found {
		if res.RouteCoordinates, err = p.engine.Coordinates(route.Nodes); err != nil {
			return nil, err
		}
	}
	res.RouteColor = RouteColorNormal
	if res.PenaltyApplied && aiMode {
		res.RouteColor = RouteColorRerouted
	}
	res.Duration = time.Since(res.StartedAt)

	p.mu.Lock()
	p.sequence++
	res.Sequence = p.sequence
	p.latest = res
	p.mu.Unlock()
	p.metrics.cycleDone()

	p.logger.Info("Planner cycle complete",
		zap.String("cycle", res.ID),
		zap.Uint64("sequence", res.Sequence),
		zap.Bool("ai_mode", aiMode),
		zap.Int("vehicles", res.VehicleCount),
		zap.String("incident", res.IncidentType),
		zap.Float64("edge_cost", res.CurrentCost),
		zap.Bool("route_found", route.Found),
		zap.Float64("route_cost", route.Cost),
	)
	return res, nil
}

// Run performs a cycle immediately and then once per Interval until ctx is
// done.
func (p *Planner) Run(ctx context.Context) error {
	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("Planner cycle failed", zap.Error(err))
		}

		timer := time.NewTimer(p.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func joinErrors(errs ...error) string {
	msg := ""
	for _, err := range errs {
		if err == nil {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}
