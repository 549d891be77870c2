package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meeting-room-backend/config"
	"meeting-room-backend/internal/api"
	"meeting-room-backend/internal/booking"
	"meeting-room-backend/internal/clock"
	"meeting-room-backend/internal/db"
	"meeting-room-backend/internal/device"
	"meeting-room-backend/internal/model"
	"meeting-room-backend/internal/notify"
	"meeting-room-backend/internal/store"
	"meeting-room-backend/internal/sweep"
	"meeting-room-backend/internal/telemetry"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "roomd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Seed the configured rooms so kiosks can address them on first boot.
	rooms := make([]model.Room, 0, len(cfg.Rooms))
	for _, rc := range cfg.Rooms {
		rooms = append(rooms, model.Room{
			Name:       rc.Name,
			Capacity:   rc.Capacity,
			Location:   rc.Location,
			Equipment:  rc.Equipment,
			Controller: rc.Controller,
		})
	}
	if err := appStore.SeedRooms(ctx, rooms); err != nil {
		logger.Fatalf("failed to seed rooms: %v", err)
	}

	sysClock := clock.NewSystem()
	commander := device.NewLineChannel(&cfg.Device)

	// Lifecycle event bus for display refresh / monitoring collaborators.
	bus := notify.NewBus(cfg.Notify.Workers, cfg.Notify.Buffer)
	bus.Subscribe(func(ev notify.Event) {
		logger.Printf("room %d: reservation %s %s -> %s", ev.RoomID, ev.ReservationID, ev.OldStatus, ev.NewStatus)
	})
	bus.Start(ctx)

	// The booking service owns the deadline timers; re-derive them from the
	// store before anything else can transition state.
	bookingSvc := booking.NewService(appStore, sysClock, commander, bus)
	if err := bookingSvc.RestoreSessions(ctx); err != nil {
		logger.Fatalf("failed to restore checked-in sessions: %v", err)
	}
	defer bookingSvc.Timers().Stop()

	// Background reconciliation and telemetry loops.
	if cfg.Sweeper.Enabled {
		sweeper := sweep.New(appStore, bookingSvc, bus, sysClock, cfg.Sweeper.Interval)
		go sweeper.Run(ctx)
	} else {
		logger.Println("expiry sweeper is disabled")
	}

	if cfg.Telemetry.Enabled {
		ingestor := telemetry.NewIngestor(appStore, commander, sysClock, cfg.Telemetry.Interval)
		go ingestor.Run(ctx)
	} else {
		logger.Println("telemetry ingestor is disabled")
	}

	// Initialize router
	router := api.NewRouter(appStore, bookingSvc, sysClock, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
