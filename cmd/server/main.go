package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"rent-hub/auth"
	"rent-hub/domain/event"
	"rent-hub/infrastructure/grpc/server"
	"rent-hub/infrastructure/ws"
	"rent-hub/internal"
	"rent-hub/runtime"
	"rent-hub/runtime/workers"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hub terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment alone is enough.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Hub
	telemetryChan := make(chan event.Event, config.TelemetryBufferSize)
	options := []runtime.Option{
		runtime.WithTelemetry(telemetryChan),
		runtime.WithBufferSize(config.ConnectionBufferSize),
	}
	if config.TokenSecret != "" {
		logger.Info("Setup requires a signed identity token")
		options = append(options, runtime.WithVerifier(auth.NewTokenVerifier(config.TokenSecret)))
	}
	hub := runtime.NewHub(logger, options...)

	// 3. Supervised workers
	counter := event.NewCounter()
	handlers := []event.Handler{
		event.NewFanoutHandler(logger, counter),
		event.NewConfirmationHandler(logger, counter),
		event.NewWorkerRestartedAfterPanicHandler(logger, counter),
		event.NewProcessStatsHandler(logger, config.MaxConnections),
		event.NewQueuePressureHandler(logger, counter),
	}
	healthServer := server.NewHealthServer(logger)
	supervisor := workers.NewSupervisor(logger, telemetryChan, config.RestartInterval)
	supervisor.Add(
		workers.NewTelemetryWorker(logger, telemetryChan, handlers),
		workers.NewProcessStatsWorker(logger, hub, telemetryChan, config.MetricInterval),
		workers.NewQueuePressureWorker(logger, hub, telemetryChan, config.MetricInterval, config.QueueHighWater),
		healthServer,
	)
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	errChan := make(chan error, 2)

	// 4. gRPC health
	healthListener, err := net.Listen("tcp", config.HealthAddress())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.HealthAddress(), err)
	}
	grpcServer := healthServer.NewGRPCServer()
	go func() {
		logger.Info("Starting gRPC health server", "address", config.HealthAddress())
		if err := grpcServer.Serve(healthListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 5. WebSocket hub
	wsServer := ws.NewServer(logger, hub, ws.Options{
		OriginPatterns: config.Origins(),
		PingInterval:   config.PingInterval,
		PingTimeout:    config.PingTimeout,
		WriteTimeout:   config.WriteTimeout,
		ReadLimit:      config.ReadLimit,
		InboundRate:    rate.Limit(config.InboundRate),
		InboundBurst:   config.InboundBurst,
	})
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           wsServer.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting hub", "address", config.Address(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Graceful shutdown
	// Sessions are closed first so websocket handlers return and Shutdown can complete.
	logger.Info("Shutting down gracefully...")
	hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
	supervisor.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}
