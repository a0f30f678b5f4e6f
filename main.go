package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/stockholm-raps/RouteServer/config"
	"github.com/stockholm-raps/RouteServer/handlers"
	"github.com/stockholm-raps/RouteServer/services"
	"github.com/stockholm-raps/RouteServer/utils"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sys, err := services.Bootstrap(cfg, logger)
	if err != nil {
		logger.Fatal("Startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sys.StartBackground(ctx)
	sys.Simulation.Start(ctx)

	r := mux.NewRouter()
	handlers.NewRoutingHandler(sys.Engine, sys.Planner, logger.Named("api")).RegisterRoutes(r)
	r.Handle("/metrics", sys.Metrics.Handler()).Methods("GET")

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           corsHandler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Route server starting", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	sys.Simulation.Stop()
}
