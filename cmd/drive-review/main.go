package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roadlens/drive-review/internal/client"
	"roadlens/drive-review/internal/config"
	"roadlens/drive-review/internal/geocode"
	"roadlens/drive-review/internal/handler"
	"roadlens/drive-review/internal/hub"
	"roadlens/drive-review/internal/logger"
	"roadlens/drive-review/internal/playback"
	"roadlens/drive-review/internal/router"
	"roadlens/drive-review/internal/service"
	"roadlens/drive-review/internal/stream"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting drive review agent",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	// Initialize backend API client
	backendClient := client.NewBackendClient(
		cfg.Backend.BaseURL,
		cfg.Backend.APIKey,
		time.Duration(cfg.Backend.Timeout)*time.Second,
		log.Logger,
	)

	// Initialize reverse geocoding with its memoizing cache
	resolver := geocode.NewNominatimResolver(
		cfg.Geocode.BaseURL,
		cfg.Geocode.UserAgent,
		time.Duration(cfg.Geocode.Timeout)*time.Second,
		log.Logger,
	)
	addressCache := geocode.NewCache(resolver, log.Logger)

	// Initialize the dashboard hub
	dashboardHub := hub.NewHub(log.Logger)
	go dashboardHub.Run()

	// Initialize the playback controller over hub-backed stream handles
	prober := stream.NewHTTPProber(
		time.Duration(cfg.Media.ProbeTimeout)*time.Second,
		log.Logger,
	)
	controller := playback.NewController(
		hub.NewStreamFactory(dashboardHub),
		prober,
		cfg.Media.BaseURL,
		time.Duration(cfg.Media.ReadyTimeout)*time.Second,
		log.Logger,
	)
	controller.SetStateListener(func(state playback.State) {
		dashboardHub.Broadcast(hub.TypePlaybackState, state)
	})

	// Initialize the review service
	reviewService := service.NewReviewService(
		backendClient,
		controller,
		addressCache,
		log.Logger,
	)
	reviewService.SetSelectionListener(func(view *service.DriveView) {
		dashboardHub.Broadcast(hub.TypeSessionSelected, view)
	})

	// Initialize HTTP surface
	driveHandler := handler.NewDriveHandler(reviewService, log.Logger)
	playbackHandler := handler.NewPlaybackHandler(controller, reviewService, log.Logger)
	wsHandler := handler.NewWSHandler(dashboardHub, controller, log.Logger)

	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router.New(driveHandler, playbackHandler, wsHandler, cfg.Server.AllowedOrigins, log.Logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting dashboard server",
			zap.String("address", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Dashboard server error", zap.Error(err))
		}
	}()

	// Check backend reachability (non-fatal)
	healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := backendClient.HealthCheck(healthCtx); err != nil {
		log.Warn("Backend not reachable at startup", zap.Error(err))
	}
	healthCancel()

	log.Info("Drive review agent started",
		zap.String("backend_url", cfg.Backend.BaseURL),
		zap.String("media_url", cfg.Media.BaseURL),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("Dashboard server shutdown error", zap.Error(err))
	} else {
		log.Info("Dashboard server stopped")
	}

	dashboardHub.Stop()

	log.Info("Drive review agent stopped")
}
