// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and monitor bindings from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockholm-raps/RouteServer/graphs_go"
)

// Signal source kinds.
const (
	SourceSimulated = "simulated"
	SourceFile      = "file"
	SourceRemote    = "remote"
)

type Config struct {
	Environment string
	LogLevel    string

	ListenAddr    string
	DashboardAddr string
	CORSOrigins   []string

	DataDir string
	Network string

	Start graphs_go.Coordinate
	End   graphs_go.Coordinate

	CameraID     string
	MonitorsFile string

	VideoPath    string
	SignalSource string
	SignalFile   string
	ModelURL     string

	RefreshInterval time.Duration
	AIMode          bool
}

// LoadEnvFiles loads .env then .env.local into the process environment.
// Missing files are ignored; variables already set win over .env.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
}

// Load builds a Config from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("RAPS_ENV", "production"),
		LogLevel:    getEnv("RAPS_LOG_LEVEL", "info"),

		ListenAddr:    getEnv("RAPS_LISTEN_ADDR", ":8080"),
		DashboardAddr: getEnv("RAPS_DASHBOARD_ADDR", ":8501"),
		CORSOrigins:   getEnvList("RAPS_CORS_ORIGINS", []string{"*"}),

		DataDir: getEnv("RAPS_DATA_DIR", "data"),
		Network: getEnv("RAPS_NETWORK", "Norrmalm, Stockholm, Sweden"),

		Start: graphs_go.Coordinate{
			Latitude:  getEnvFloat("RAPS_START_LAT", 59.3300),
			Longitude: getEnvFloat("RAPS_START_LON", 18.0581),
		},
		End: graphs_go.Coordinate{
			Latitude:  getEnvFloat("RAPS_END_LAT", 59.3307),
			Longitude: getEnvFloat("RAPS_END_LON", 18.0716),
		},

		CameraID:     getEnv("RAPS_CAMERA_ID", "CAM_01"),
		MonitorsFile: getEnv("RAPS_MONITORS_FILE", ""),

		VideoPath:    getEnv("RAPS_VIDEO_PATH", "assets/stockholm_traffic.mp4"),
		SignalSource: strings.ToLower(getEnv("RAPS_SIGNAL_SOURCE", SourceSimulated)),
		SignalFile:   getEnv("RAPS_SIGNAL_FILE", ""),
		ModelURL:     getEnv("RAPS_MODEL_URL", ""),

		RefreshInterval: time.Duration(getEnvInt("RAPS_REFRESH_SECONDS", 2)) * time.Second,
		AIMode:          getEnvBool("RAPS_AI_MODE", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Network == "" {
		return fmt.Errorf("RAPS_NETWORK is required")
	}
	if c.CameraID == "" {
		return fmt.Errorf("RAPS_CAMERA_ID is required")
	}
	if c.RefreshInterval < time.Second || c.RefreshInterval > 5*time.Second {
		return fmt.Errorf("RAPS_REFRESH_SECONDS must be between 1 and 5, got %s", c.RefreshInterval)
	}
	switch c.SignalSource {
	case SourceSimulated:
	case SourceFile:
		if c.SignalFile == "" {
			return fmt.Errorf("RAPS_SIGNAL_FILE is required when RAPS_SIGNAL_SOURCE=file")
		}
	case SourceRemote:
		if c.ModelURL == "" {
			return fmt.Errorf("RAPS_MODEL_URL is required when RAPS_SIGNAL_SOURCE=remote")
		}
	default:
		return fmt.Errorf("unknown RAPS_SIGNAL_SOURCE %q", c.SignalSource)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return value == "yes" || value == "on"
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
