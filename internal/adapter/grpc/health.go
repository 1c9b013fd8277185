// Package grpc exposes the service's gRPC surface: the standard health
// checking protocol, backed by database reachability.
package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name under which the activity service reports health.
// The empty name reports the overall server status.
const ServiceName = "activities.ActivityService"

// Pinger is anything whose liveness can be checked, such as the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService keeps the gRPC health status in line with the database.
type HealthService struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
	log      *zap.Logger
}

// NewHealthService creates a HealthService. Both the overall and the
// activity service status start as NOT_SERVING until the first Refresh.
func NewHealthService(db Pinger, interval time.Duration, log *zap.Logger) *HealthService {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthService{
		server:   srv,
		db:       db,
		interval: interval,
		log:      log,
	}
}

// Register attaches the health service to a gRPC server.
func (h *HealthService) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Refresh pings the database once and publishes the result.
func (h *HealthService) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("database ping failed, reporting NOT_SERVING", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes the status every interval until ctx is done.
func (h *HealthService) Watch(ctx context.Context) {
	h.Refresh(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING and ignores later updates,
// so load balancers drain the instance before it stops.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}
