package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/graphs_go"
	"github.com/stockholm-raps/RouteServer/models"
	"github.com/stockholm-raps/RouteServer/services"
	"github.com/stockholm-raps/RouteServer/utils"
)

type RoutingHandler struct {
	engine  *services.AdaptiveEngine
	planner *services.Planner
	logger  *zap.Logger
	started time.Time
}

func NewRoutingHandler(engine *services.AdaptiveEngine, planner *services.Planner, logger *zap.Logger) *RoutingHandler {
	return &RoutingHandler{
		engine:  engine,
		planner: planner,
		logger:  logger,
		started: time.Now(),
	}
}

func (h *RoutingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/routes", h.ResolveRoute).Methods("POST")
	router.HandleFunc("/api/signals", h.ApplySignal).Methods("POST")
	router.HandleFunc("/api/nodes/{id}", h.GetNode).Methods("GET")
	router.HandleFunc("/api/monitors", h.ListMonitors).Methods("GET")
	router.HandleFunc("/api/cycles/latest", h.LatestCycle).Methods("GET")
	router.HandleFunc("/api/settings/ai-mode", h.SetAIMode).Methods("PUT")
	router.HandleFunc("/health", h.Health).Methods("GET")
}

func (h *RoutingHandler) ResolveRoute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.RouteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Invalid request body", err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Validation failed", err)
		return
	}

	route, err := h.engine.ResolveRoute(req.Origin.Coordinate(), req.Destination.Coordinate())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	resp := models.RouteResponse{
		Origin:      *req.Origin,
		Destination: *req.Destination,
		Route:       route,
		ComputedAt:  time.Now().UTC(),
	}
	m := meta(start)
	if route.Found {
		coords, err := h.engine.Coordinates(route.Nodes)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		for _, c := range coords {
			resp.Path = append(resp.Path, models.NewLocation(c))
		}
		resp.Summary = fmt.Sprintf("%d nodes, %.1fs", len(route.Nodes), route.Cost)
		count := len(route.Nodes)
		m.ResultCount = &count
		m.TotalCost = &route.Cost
	} else {
		resp.Summary = fmt.Sprintf("no path from node %d to node %d", route.OriginNode, route.DestinationNode)
	}
	writeJSON(w, r, http.StatusOK, resp, m)
}

func (h *RoutingHandler) ApplySignal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SignalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Invalid request body", err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Validation failed", err)
		return
	}

	sensorID := req.SensorID
	if sensorID == "" {
		sensorID = h.engine.PrimarySensor()
	}
	changes, err := h.engine.ApplyReadings(map[string]graphs_go.Signal{
		sensorID: {CongestionFactor: *req.CongestionFactor, IncidentPenalty: *req.IncidentPenalty},
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.logger.Info("Signal applied",
		zap.String("sensor", sensorID),
		zap.Float64("congestion_factor", *req.CongestionFactor),
		zap.Float64("incident_penalty", *req.IncidentPenalty),
	)
	m := meta(start)
	count := len(changes)
	m.ResultCount = &count
	writeJSON(w, r, http.StatusOK, models.SignalResponse{SensorID: sensorID, Changes: changes}, m)
}

func (h *RoutingHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := utils.ParseNodeID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Invalid node id", err)
		return
	}
	node, err := h.engine.Node(id)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.NodeResponse{
		ID:          node.ID,
		Location:    models.NewLocation(node.Coordinate()),
		StreetCount: node.StreetCount,
	}, meta(start))
}

func (h *RoutingHandler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	edges := h.engine.MonitoredEdges()
	m := meta(start)
	count := len(edges)
	m.ResultCount = &count
	writeJSON(w, r, http.StatusOK, edges, m)
}

func (h *RoutingHandler) LatestCycle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	latest := h.planner.Latest()
	if latest == nil {
		writeError(w, r, http.StatusNotFound, models.CodeNotFound, "No planner cycle has run yet", nil)
		return
	}
	writeJSON(w, r, http.StatusOK, latest, meta(start))
}

func (h *RoutingHandler) SetAIMode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.AIModeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Invalid request body", err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, models.CodeInvalidRequest, "Validation failed", err)
		return
	}
	h.planner.SetAIMode(*req.Enabled)
	h.logger.Info("AI mode changed", zap.Bool("enabled", *req.Enabled))
	writeJSON(w, r, http.StatusOK, map[string]bool{"ai_mode": *req.Enabled}, meta(start))
}

func (h *RoutingHandler) Health(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.engine.Stats()
	resp := models.HealthResponse{
		Status: "ok",
		Nodes:  nodes,
		Edges:  edges,
		AIMode: h.planner.AIMode(),
		Uptime: time.Since(h.started).Round(time.Second).String(),
	}
	if latest := h.planner.Latest(); latest != nil {
		resp.Sequence = latest.Sequence
	}
	writeJSON(w, r, http.StatusOK, resp, nil)
}
