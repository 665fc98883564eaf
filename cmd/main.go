package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"planning-poker/auth"
	"planning-poker/domain/event"
	"planning-poker/infrastructure/api"
	"planning-poker/infrastructure/ws"
	"planning-poker/observability"
	"planning-poker/repositories"
	"planning-poker/runtime"
	"planning-poker/runtime/workers"
	"planning-poker/services"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Planning poker terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Every defer (database close first of all) runs before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, log, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if log.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		log.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugInspectorPort, endpoint))
		database.StartDebugServer(db, config.DebugInspectorPort, endpoint, repositories.InspectRow)
	}

	// 3. Setup Supervision & Orchestration
	monitor := observability.NewMonitor()
	telemetryChan := make(chan event.Delivery, config.TelemetryBuffer)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, monitor, config.RoomQueueSize, config.RoomIdleTimeout)
	orchestrator.Add(
		workers.NewTelemetryWorker(log, telemetryChan, monitor, event.NewFailedDeliveryHandler(log)),
		workers.NewHealthMonitoringWorker(log, monitor, config.MetricInterval),
		workers.NewChannelCapacityWorker(log, []workers.NamedQueue{
			{Name: "telemetry", Usage: func() (int, int) { return len(telemetryChan), cap(telemetryChan) }},
			{Name: "rooms", Usage: orchestrator.Backlog},
		}, monitor, config.QueueWarnPercent, config.MetricInterval),
	)

	store := repositories.NewStore(db, log)
	clock := services.SystemClock{}
	coordinator := runtime.NewCoordinator(log,
		store,
		orchestrator,
		registry,
		workers.NewEventFanout(log, registry, telemetryChan, config.SinkTimeout),
		services.NewRoomService(log, clock, services.SystemRandom{}, services.NewID),
		services.NewTaskService(log, clock, services.NewID),
		services.NewVoteService(log, clock, services.NewID),
		auth.NewTokenIssuer(config.RejoinTokenSecret, config.RejoinTokenTTL),
		services.NewID,
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the Engine
	if err = orchestrator.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("orchestrator failed to start: %w", err)
	}

	// 6. HTTP & websocket server
	if !log.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	wsServer := ws.NewServer(log, coordinator, monitor, ws.Options{
		ReadLimit:      config.ReadLimitBytes,
		SendBuffer:     config.SendBufferSize,
		ActionTimeout:  config.ActionTimeout,
		RatePerSecond:  config.InboundRate,
		Burst:          config.InboundBurst,
		AllowedOrigins: []string{config.ClientURL},
	})
	handler := api.NewHandler(log, coordinator, monitor, config.ClientURL)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           api.NewRouter(log, handler, wsServer, config.ClientURL),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Hijacked websocket connections are not tracked by Shutdown, stopping the
	// orchestrator fails whatever they still send.
	log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", "error", err)
	}
	orchestrator.Stop()
	log.Info("Program stopped cleanly")
	return code, runErr
}

func buildBadgerOpts(config Config, log *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG).WithBypassLockGuard(true)
	}
	return options.WithLoggingLevel(badger.INFO)
}
