package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/fire-scanner/internal/api"
	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/data"
	"github.com/mohamedkhairy/fire-scanner/internal/intake"
	"github.com/mohamedkhairy/fire-scanner/internal/scanner"
	"github.com/mohamedkhairy/fire-scanner/internal/scoring"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceTitle   = "FireScanner API"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting "+serviceTitle,
		logger.String("version", serviceVersion),
		logger.Int("port", cfg.API.Port),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
		logger.Bool("trust_proxy", cfg.API.TrustProxy),
		logger.Duration("request_timeout", cfg.API.RequestTimeout),
		logger.String("primary_source", cfg.Primary.Type),
		logger.String("secondary_source", cfg.Secondary.Type),
	)

	// Initialize item sources
	factory := data.NewSourceFactory()
	primary, err := factory.CreateSource(cfg.Primary)
	if err != nil {
		logger.Fatal("Failed to initialize primary source",
			logger.ErrorField(err),
		)
	}
	secondary, err := factory.CreateSource(cfg.Secondary)
	if err != nil {
		logger.Fatal("Failed to initialize secondary source",
			logger.ErrorField(err),
		)
	}

	// Scoring rules are read once here; a bad file falls back to defaults
	engine := scoring.NewEngine(scoring.FileRules(cfg.Scan.RulesPath))
	elite, high := engine.Thresholds()
	logger.Info("Scoring engine ready",
		logger.String("rules_path", cfg.Scan.RulesPath),
		logger.String("rules_version", engine.Version()),
		logger.Float64("elite_threshold", elite),
		logger.Float64("high_threshold", high),
		logger.Strings("badges", engine.BadgeNames()),
	)

	service := scanner.NewService(
		scanner.ServiceConfig{ResultLimit: cfg.Scan.ResultLimit},
		intake.NewCoordinator(primary, secondary),
		engine,
	)

	// Initialize handlers
	scanHandler := api.NewScanHandler(service, cfg.API.RequestTimeout)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/scan", scanHandler.Scan).Methods("GET")
	router.HandleFunc("/timeframes", scanHandler.ListTimeframes).Methods("GET")

	// API v1 routes
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/scan", scanHandler.Scan).Methods("GET")
	v1.HandleFunc("/timeframes", scanHandler.ListTimeframes).Methods("GET")

	var shuttingDown atomic.Bool

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": serviceTitle,
			"version": serviceVersion,
			"stats":   service.GetStats(),
		})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Request logging sits inside the router so metrics see the route template
	router.Use(mux.MiddlewareFunc(api.LoggingMiddleware()))

	// Apply middleware
	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.RequestIDMiddleware(),
		api.ErrorHandlingMiddleware(),
		api.RateLimitMiddleware(cfg.API.RateLimitRPS, cfg.API.TrustProxy),
	)

	handler := middlewares(router)

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: handler,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	shuttingDown.Store(true)
	logger.Info("Shutting down " + serviceTitle)

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info(serviceTitle + " stopped")
}
