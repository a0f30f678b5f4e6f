package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stockholm-raps/RouteServer/graphs_go"
)

// MonitorSpec binds one sensor to one or more road segments.
//
//	monitors:
//	  - sensor_id: CAM_01
//	    bindings:
//	      - rule: nearest
//	        latitude: 59.3300
//	        longitude: 18.0581
//	  - sensor_id: CAM_02
//	    bindings:
//	      - rule: edge
//	        edge: {from: 25935139, to: 25935140, key: 0}
type MonitorSpec struct {
	SensorID string        `yaml:"sensor_id"`
	Bindings []BindingSpec `yaml:"bindings"`
}

type BindingSpec struct {
	Rule      string            `yaml:"rule"`
	Edge      graphs_go.EdgeKey `yaml:"edge"`
	Latitude  float64           `yaml:"latitude"`
	Longitude float64           `yaml:"longitude"`
}

type monitorsFile struct {
	Monitors []MonitorSpec `yaml:"monitors"`
}

// DefaultMonitors is the single camera bound to the first edge of the network.
func DefaultMonitors(cameraID string) []MonitorSpec {
	return []MonitorSpec{{
		SensorID: cameraID,
		Bindings: []BindingSpec{{Rule: string(graphs_go.BindFirst)}},
	}}
}

// LoadMonitors reads monitor bindings from path. An empty path yields
// DefaultMonitors(cameraID).
func LoadMonitors(path, cameraID string) ([]MonitorSpec, error) {
	if path == "" {
		return DefaultMonitors(cameraID), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read monitors file: %w", err)
	}
	var file monitorsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("could not parse monitors file %s: %w", path, err)
	}
	if len(file.Monitors) == 0 {
		return nil, fmt.Errorf("monitors file %s defines no monitors", path)
	}

	seen := make(map[string]bool, len(file.Monitors))
	for i, m := range file.Monitors {
		if m.SensorID == "" {
			return nil, fmt.Errorf("monitor %d: sensor_id is required", i)
		}
		if seen[m.SensorID] {
			return nil, fmt.Errorf("monitor %s: duplicate sensor_id", m.SensorID)
		}
		seen[m.SensorID] = true
		if len(m.Bindings) == 0 {
			file.Monitors[i].Bindings = []BindingSpec{{Rule: string(graphs_go.BindFirst)}}
		}
		for _, b := range m.Bindings {
			if _, err := graphs_go.ParseBindingRule(b.Rule); err != nil {
				return nil, fmt.Errorf("monitor %s: %w", m.SensorID, err)
			}
		}
	}
	return file.Monitors, nil
}

// Binding converts the YAML form to a graph binding.
func (b BindingSpec) Binding() (graphs_go.Binding, error) {
	rule, err := graphs_go.ParseBindingRule(b.Rule)
	if err != nil {
		return graphs_go.Binding{}, err
	}
	return graphs_go.Binding{
		Rule:     rule,
		Edge:     b.Edge,
		Location: graphs_go.Coordinate{Latitude: b.Latitude, Longitude: b.Longitude},
	}, nil
}
