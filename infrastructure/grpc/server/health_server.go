package server

import (
	"context"
	"log/slog"
	"time"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HubServiceName is the service name reported by the health service.
const HubServiceName = "renthub.Hub"

// HealthServer exposes the standard gRPC health protocol for the hub.
// Orchestrators probe it instead of opening a websocket.
type HealthServer struct {
	log    *slog.Logger
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(HubServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{log: log, health: h}
}

// NewGRPCServer builds a server with request logging and the health service registered.
func (s *HealthServer) NewGRPCServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(s.log)))
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(HubServiceName, status)
	s.log.Info("Health status changed", "status", status.String(), "at", time.Now().UTC())
}

// Run marks the hub serving until ctx ends, then shuts the health service down.
func (s *HealthServer) Run(ctx context.Context) error {
	s.SetServing(true)
	<-ctx.Done()
	s.health.Shutdown()
	return nil
}
