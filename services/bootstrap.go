package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/config"
	"github.com/stockholm-raps/RouteServer/graphs_go"
	"github.com/stockholm-raps/RouteServer/sensors"
)

// System is the wired set of components shared by the API and dashboard
// binaries.
type System struct {
	Config     *config.Config
	Engine     *AdaptiveEngine
	Planner    *Planner
	Simulation *Simulation
	Metrics    *Metrics

	fileSource *sensors.FileSource
	logger     *zap.Logger
}

// Bootstrap loads the network, binds monitors and builds the signal sources.
// Any error here is fatal for the caller.
func Bootstrap(cfg *config.Config, logger *zap.Logger) (*System, error) {
	g, err := graphs_go.LoadNetwork(cfg.Network, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Road network loaded",
		zap.String("network", cfg.Network),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)

	specs, err := config.LoadMonitors(cfg.MonitorsFile, cfg.CameraID)
	if err != nil {
		return nil, err
	}
	monitors, err := BindMonitors(g, specs)
	if err != nil {
		return nil, err
	}
	for _, m := range monitors {
		logger.Info("Sensor bound", zap.String("sensor", m.SensorID), zap.Stringers("edges", m.Edges))
	}

	metrics := NewMetrics("raps")
	engine, err := NewAdaptiveEngine(g, monitors, logger.Named("engine"), metrics)
	if err != nil {
		return nil, err
	}

	sys := &System{Config: cfg, Engine: engine, Metrics: metrics, logger: logger}
	congestion, incident, err := sys.newSources()
	if err != nil {
		return nil, err
	}

	planner, err := NewPlanner(engine, congestion, incident, PlannerConfig{
		Origin:      cfg.Start,
		Destination: cfg.End,
		CameraID:    cfg.CameraID,
		AIMode:      cfg.AIMode,
	}, logger.Named("planner"), metrics)
	if err != nil {
		return nil, err
	}
	planner.SetInterval(cfg.RefreshInterval)

	sys.Planner = planner
	sys.Simulation = NewSimulation(planner, logger.Named("simulation"))
	return sys, nil
}

// BindMonitors resolves every binding in specs against g.
func BindMonitors(g *graphs_go.Graph, specs []config.MonitorSpec) ([]Monitor, error) {
	monitors := make([]Monitor, 0, len(specs))
	for _, spec := range specs {
		m := Monitor{SensorID: spec.SensorID}
		for _, bs := range spec.Bindings {
			b, err := bs.Binding()
			if err != nil {
				return nil, fmt.Errorf("sensor %s: %w", spec.SensorID, err)
			}
			key, err := g.Bind(b)
			if err != nil {
				return nil, fmt.Errorf("could not bind sensor %s: %w", spec.SensorID, err)
			}
			m.Edges = append(m.Edges, key)
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}

func (s *System) newSources() (sensors.CongestionSource, sensors.IncidentSource, error) {
	switch s.Config.SignalSource {
	case config.SourceFile:
		fs, err := sensors.NewFileSource(s.Config.SignalFile, s.logger.Named("file-source"))
		if err != nil {
			return nil, nil, err
		}
		s.fileSource = fs
		return fs, fs, nil
	case config.SourceRemote:
		client := sensors.NewModelClient(s.Config.ModelURL, sensors.DefaultBreakerSettings(), s.logger.Named("model-client"))
		return client, client, nil
	default:
		return sensors.NewTrafficEye(s.Config.VideoPath, s.logger.Named("vision")),
			sensors.NewIncidentEar(s.logger.Named("text")), nil
	}
}

// StartBackground starts helpers that live as long as ctx, such as the
// signal file watcher.
func (s *System) StartBackground(ctx context.Context) {
	if s.fileSource == nil {
		return
	}
	go func() {
		if err := s.fileSource.Watch(ctx); err != nil {
			s.logger.Error("Signal file watcher stopped", zap.Error(err))
		}
	}()
}
