package grpc

import (
	"context"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health checks alongside the empty
// overall service.
const ServiceName = "pendataan.v1.Intake"

// Health reports SERVING while the backing store answers pings.
type Health struct {
	server  *health.Server
	check   func(ctx context.Context) error
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealth(check func(ctx context.Context) error, logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	h := &Health{
		server:  health.NewServer(),
		check:   check,
		timeout: 2 * time.Second,
		logger:  logger,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

// Refresh runs the check once and publishes the result.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := h.check(checkCtx)
		cancel()
		if err != nil {
			h.logger.Warn("health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(status)
	return status
}

// Watch refreshes on every interval until ctx ends, then marks the server as
// shutting down so watchers see NOT_SERVING before the listener closes.
func (h *Health) Watch(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	h.Refresh(ctx)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				h.server.Shutdown()
				return
			case <-ticker.C:
				h.Refresh(ctx)
			}
		}
	}()
	return done
}
