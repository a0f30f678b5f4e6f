package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/graphs_go"
	"github.com/stockholm-raps/RouteServer/models"
	"github.com/stockholm-raps/RouteServer/services"
	"github.com/stockholm-raps/RouteServer/utils"
)

const standbyMessage = "System standby. Start the live simulation to begin."

// DashboardHandler serves the control-center feed: simulation start/stop,
// AI toggle, refresh rate and the latest cycle for the map view.
type DashboardHandler struct {
	ctx        context.Context
	engine     *services.AdaptiveEngine
	planner    *services.Planner
	simulation *services.Simulation
	start      graphs_go.Coordinate
	end        graphs_go.Coordinate
	logger     *zap.Logger
}

// NewDashboardHandler builds the handler. Simulations started through it
// run until ctx is cancelled or they are stopped.
func NewDashboardHandler(ctx context.Context, sys *services.System, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		ctx:        ctx,
		engine:     sys.Engine,
		planner:    sys.Planner,
		simulation: sys.Simulation,
		start:      sys.Config.Start,
		end:        sys.Config.End,
		logger:     logger,
	}
}

func (h *DashboardHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/dashboard", h.Dashboard)
	r.POST("/api/simulation/start", h.StartSimulation)
	r.POST("/api/simulation/stop", h.StopSimulation)
	r.POST("/api/simulation/toggle", h.ToggleSimulation)
	r.GET("/api/settings", h.GetSettings)
	r.PUT("/api/settings", h.UpdateSettings)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	resp := models.DashboardResponse{
		Running:        h.simulation.Running(),
		AIMode:         h.planner.AIMode(),
		RefreshSeconds: int(h.planner.Interval() / time.Second),
		Start:          models.NewLocation(h.start),
		End:            models.NewLocation(h.end),
		Cycle:          h.planner.Latest(),
		Monitors:       h.engine.MonitoredEdges(),
	}
	if started := h.simulation.StartedAt(); !started.IsZero() {
		resp.StartedAt = &started
	}
	if !resp.Running {
		resp.Message = standbyMessage
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DashboardHandler) StartSimulation(c *gin.Context) {
	if !h.simulation.Start(h.ctx) {
		c.JSON(http.StatusConflict, models.ApiError{Code: models.CodeInvalidRequest, Message: "Simulation already running"})
		return
	}
	c.JSON(http.StatusOK, h.settings())
}

func (h *DashboardHandler) StopSimulation(c *gin.Context) {
	if !h.simulation.Stop() {
		c.JSON(http.StatusConflict, models.ApiError{Code: models.CodeInvalidRequest, Message: "Simulation not running"})
		return
	}
	c.JSON(http.StatusOK, h.settings())
}

func (h *DashboardHandler) ToggleSimulation(c *gin.Context) {
	h.simulation.Toggle(h.ctx)
	c.JSON(http.StatusOK, h.settings())
}

func (h *DashboardHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings())
}

func (h *DashboardHandler) UpdateSettings(c *gin.Context) {
	var req models.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ApiError{Code: models.CodeInvalidRequest, Message: "Invalid request body", Details: err.Error()})
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ApiError{Code: models.CodeInvalidRequest, Message: "Validation failed", Details: err.Error()})
		return
	}

	if req.AIMode != nil {
		h.planner.SetAIMode(*req.AIMode)
	}
	if req.RefreshSeconds != nil {
		h.planner.SetInterval(time.Duration(*req.RefreshSeconds) * time.Second)
	}
	settings := h.settings()
	h.logger.Info("Dashboard settings updated",
		zap.Bool("ai_mode", settings.AIMode),
		zap.Int("refresh_seconds", settings.RefreshSeconds),
	)
	c.JSON(http.StatusOK, settings)
}

func (h *DashboardHandler) settings() models.SettingsResponse {
	return models.SettingsResponse{
		AIMode:         h.planner.AIMode(),
		RefreshSeconds: int(h.planner.Interval() / time.Second),
		Running:        h.simulation.Running(),
	}
}
