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

	"github.com/openmast/helmsman/internal/api"
	"github.com/openmast/helmsman/internal/config"
	"github.com/openmast/helmsman/internal/navigation"
	"github.com/openmast/helmsman/internal/simulation"
	"github.com/openmast/helmsman/internal/storage/sqlite"
	"github.com/openmast/helmsman/internal/websocket"
	"github.com/openmast/helmsman/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Helmsman server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Create SQLite route storage
	routeStorage, err := sqlite.NewRouteStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer routeStorage.Close()
	log.Info("Using SQLite storage", logger.String("path", cfg.Storage.SQLitePath))

	// Create WebSocket server
	wsServer := websocket.NewServer(log)

	// Start WebSocket server
	go wsServer.Run()

	// Create navigation service
	navService := navigation.NewService(navigation.Config{
		DefaultArrivalRadiusNM: cfg.Navigation.DefaultArrivalRadiusNM,
		AutoAdvance:            cfg.Navigation.AutoAdvance,
		MagneticBearings:       cfg.Navigation.MagneticBearings,
		MinSpeedKn:             cfg.Navigation.MinSpeedKn,
	}, wsServer, log)

	// Create and set WebSocket message handler for inbound position reports
	wsHandler := navigation.NewWebSocketHandler(navService, log)
	wsServer.SetMessageHandler(wsHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create simulation service (if enabled)
	var simService *simulation.Service
	if cfg.Simulation.Enabled {
		simService = simulation.NewService(
			time.Duration(cfg.Simulation.UpdateIntervalSecs)*time.Second,
			navService,
			log,
		)
		go simService.Run(ctx)

		if cfg.Simulation.AutoStartOnActivate {
			_, err := simService.Start(
				cfg.Simulation.InitialLat,
				cfg.Simulation.InitialLon,
				cfg.Simulation.InitialHeadingDeg,
				cfg.Simulation.InitialSpeedKn,
				cfg.Simulation.FollowActiveRoute,
			)
			if err != nil {
				log.Error("Failed to start simulated vessel", logger.Error(err))
			}
		}
		log.Info("Simulation service enabled",
			logger.Int("update_interval_secs", cfg.Simulation.UpdateIntervalSecs))
	} else {
		log.Info("Simulation service disabled in configuration")
	}

	// Create API router
	router := api.NewRouter(routeStorage, navService, simService, cfg, log, wsServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop background services first
	navService.Stop()

	// Cancel the main context, which ends the simulation loop
	cancel()

	// Shutdown the HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete")
	}

	log.Info("Server fully stopped")
}
