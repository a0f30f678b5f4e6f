package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// fileReading is the on-disk format. Explicit factor and penalty override
// the values derived from the count and the text.
type fileReading struct {
	VehicleCount     int      `json:"vehicle_count"`
	CongestionFactor *float64 `json:"congestion_factor,omitempty"`
	IncidentText     string   `json:"incident_text"`
	IncidentPenalty  *float64 `json:"incident_penalty,omitempty"`
}

// FileSource serves the readings stored in a JSON file and picks up edits
// while Watch is running. A file that fails to parse keeps the last good
// readings in place.
type FileSource struct {
	path   string
	logger *zap.Logger

	mu         sync.RWMutex
	congestion CongestionReading
	incident   IncidentReading
	loadErr    error
}

func NewFileSource(path string, logger *zap.Logger) (*FileSource, error) {
	fs := &FileSource{path: path, logger: logger}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Reload re-reads the file.
func (s *FileSource) Reload() error {
	raw, err := s.read()
	if err != nil {
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		return err
	}

	congestion := congestionReading(raw.VehicleCount)
	if raw.CongestionFactor != nil {
		congestion.Factor = *raw.CongestionFactor
	}
	incident := incidentReading(raw.IncidentText)
	if raw.IncidentPenalty != nil {
		incident.Penalty = *raw.IncidentPenalty
	}

	s.mu.Lock()
	s.congestion = congestion
	s.incident = incident
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

func (s *FileSource) ProduceCongestion(ctx context.Context) (CongestionReading, error) {
	if err := ctx.Err(); err != nil {
		return CongestionReading{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.congestion, nil
}

func (s *FileSource) ProduceIncident(ctx context.Context) (IncidentReading, error) {
	if err := ctx.Err(); err != nil {
		return IncidentReading{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.incident, nil
}

func (s *FileSource) read() (fileReading, error) {
	var raw fileReading
	data, err := os.ReadFile(s.path)
	if err != nil {
		return raw, fmt.Errorf("could not read signal file: %w", err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("could not parse signal file %s: %w", s.path, err)
	}
	return raw, nil
}

// LastError returns the most recent parse failure, or nil.
func (s *FileSource) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Watch reloads the file whenever it changes until ctx is done. The parent
// directory is watched so editors that replace the file are handled.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("Signal file reload failed", zap.String("path", s.path), zap.Error(err))
				continue
			}
			s.logger.Info("Signal file reloaded",
				zap.String("path", s.path),
				zap.String("operation", event.Op.String()),
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("File watcher error", zap.Error(err))
		case <-ctx.Done():
			return nil
		}
	}
}
