package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stockholm-raps/RouteServer/graphs_go"
	"github.com/stockholm-raps/RouteServer/models"
	"github.com/stockholm-raps/RouteServer/services"
)

const requestIDHeader = "X-Request-ID"

func requestID(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func meta(start time.Time) *models.MetaData {
	return &models.MetaData{
		ProcessTime: fmt.Sprintf("%.3f", float64(time.Since(start).Microseconds())/1000),
		ApiVersion:  models.ApiVersion,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}, m *models.MetaData) {
	id := requestID(r)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(requestIDHeader, id)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ApiResponse{
		Success:   status < 400,
		Data:      data,
		Meta:      m,
		RequestID: id,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	id := requestID(r)
	apiErr := &models.ApiError{Code: code, Message: message}
	if err != nil {
		apiErr.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(requestIDHeader, id)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ApiResponse{
		Success:   false,
		Error:     apiErr,
		RequestID: id,
	})
}

// writeEngineError maps engine and graph errors to HTTP responses.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, graphs_go.ErrInvalidSignal), errors.Is(err, graphs_go.ErrInvalidCost):
		writeError(w, r, http.StatusUnprocessableEntity, models.CodeInvalidSignal, "Signal values must be finite and non-negative", err)
	case errors.Is(err, graphs_go.ErrInvalidCoordinate):
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Invalid coordinate", err)
	case errors.Is(err, services.ErrUnknownSensor):
		writeError(w, r, http.StatusNotFound, models.CodeUnknownSensor, "Unknown sensor", err)
	case errors.Is(err, graphs_go.ErrNodeNotFound), errors.Is(err, graphs_go.ErrEdgeNotFound):
		writeError(w, r, http.StatusNotFound, models.CodeNotFound, "Not found", err)
	default:
		writeError(w, r, http.StatusInternalServerError, models.CodeInternal, "Internal server error", err)
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
