package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loanplan/internal/api"
	"loanplan/internal/config"
	"loanplan/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfgFile, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	planner, err := cfgFile.Planner.PlanConfig()
	if err != nil {
		logger.Fatal("invalid planner configuration", zap.Error(err))
	}

	metrics.RegisterDefault()

	srv, err := api.NewServer(logger, planner, cfgFile.Server.RateLimitRPS, cfgFile.Server.RateLimitBurst)
	if err != nil {
		logger.Fatal("failed to init server", zap.Error(err))
	}

	mux := http.NewServeMux()

	// Planning
	mux.HandleFunc("/v1/plan", srv.PlanHandler)

	// Stored runs + audit ledgers
	mux.HandleFunc("/v1/runs", srv.RunsIndexHandler)
	mux.HandleFunc("/v1/runs/", srv.RunByIDHandler)

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Prometheus
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := cfgFile.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("API listening", zap.String("addr", addr))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
