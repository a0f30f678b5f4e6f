package sensors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/congestion", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"vehicle_count": 33}`))
	})
	mux.HandleFunc("/v1/incident", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "ACCIDENT reported near Central Station! Road blocked.", "penalty": 1800}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestModelClientReadings(t *testing.T) {
	srv := newModelServer(t)
	client := NewModelClient(srv.URL+"/", DefaultBreakerSettings(), zap.NewNop())

	c, err := client.ProduceCongestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CongestionReading{VehicleCount: 33, Factor: 3.0, Status: StatusHeavyJam}, c)

	i, err := client.ProduceIncident(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, i.Severity)
	assert.Equal(t, 1800.0, i.Penalty)
	assert.Equal(t, "closed", client.State())
}

func TestModelClientBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	settings := DefaultBreakerSettings()
	settings.Timeout = time.Minute
	client := NewModelClient(srv.URL, settings, zap.NewNop())

	for i := 0; i < int(settings.MinRequests); i++ {
		_, err := client.ProduceCongestion(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, "open", client.State())

	_, err := client.ProduceIncident(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int32(settings.MinRequests), atomic.LoadInt32(&calls))
}

func TestModelClientBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewModelClient(srv.URL, DefaultBreakerSettings(), zap.NewNop()).ProduceCongestion(context.Background())
	assert.ErrorContains(t, err, "decode")
}
