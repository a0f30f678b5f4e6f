package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Simulation starts and stops a planner loop on demand.
type Simulation struct {
	planner *Planner
	logger  *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

func NewSimulation(planner *Planner, logger *zap.Logger) *Simulation {
	return &Simulation{planner: planner, logger: logger}
}

// Start launches the loop under ctx. It reports false if already running.
func (s *Simulation) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.startedAt = time.Now()

	go func() {
		defer close(done)
		s.planner.Run(runCtx)
	}()
	s.logger.Info("Simulation started", zap.Duration("interval", s.planner.Interval()))
	return true
}

// Stop cancels the loop and waits for it to exit. It reports false if the
// loop was not running.
func (s *Simulation) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	s.logger.Info("Simulation stopped")
	return true
}

// Toggle flips between running and stopped and returns the new state.
func (s *Simulation) Toggle(ctx context.Context) bool {
	if s.Stop() {
		return false
	}
	return s.Start(ctx)
}

func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// StartedAt returns when the current run began, or the zero time.
func (s *Simulation) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return time.Time{}
	}
	return s.startedAt
}
