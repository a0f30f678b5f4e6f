package sensors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrModelUnavailable is returned while the circuit breaker is open.
var ErrModelUnavailable = errors.New("sensors: model service unavailable")

type congestionResponse struct {
	VehicleCount     int      `json:"vehicle_count"`
	CongestionFactor *float64 `json:"congestion_factor"`
	Status           string   `json:"status"`
}

type incidentResponse struct {
	Text     string   `json:"text"`
	Severity string   `json:"severity"`
	Penalty  *float64 `json:"penalty"`
}

// ModelClient asks a remote inference service for readings. Responses that
// omit the factor or penalty are classified locally from the count or text.
type ModelClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// BreakerSettings controls when the client stops calling the service.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

func NewModelClient(baseURL string, settings BreakerSettings, logger *zap.Logger) *ModelClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-service",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &ModelClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: cb,
		logger:  logger,
	}
}

func (c *ModelClient) ProduceCongestion(ctx context.Context) (CongestionReading, error) {
	var resp congestionResponse
	if err := c.get(ctx, "/v1/congestion", &resp); err != nil {
		return CongestionReading{}, err
	}
	reading := congestionReading(resp.VehicleCount)
	if resp.CongestionFactor != nil {
		reading.Factor = *resp.CongestionFactor
	}
	if resp.Status != "" {
		reading.Status = resp.Status
	}
	return reading, nil
}

func (c *ModelClient) ProduceIncident(ctx context.Context) (IncidentReading, error) {
	var resp incidentResponse
	if err := c.get(ctx, "/v1/incident", &resp); err != nil {
		return IncidentReading{}, err
	}
	reading := incidentReading(resp.Text)
	if resp.Penalty != nil {
		reading.Penalty = *resp.Penalty
	}
	if resp.Severity != "" {
		reading.Severity = resp.Severity
	}
	return reading, nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (c *ModelClient) State() string {
	return c.breaker.State().String()
}

func (c *ModelClient) get(ctx context.Context, path string, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call model service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("model service returned status %d for %s", resp.StatusCode, path)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode model response: %w", err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return err
}
