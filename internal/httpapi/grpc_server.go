package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"hosi.com/identity/internal/obs"
)

const serviceName = "identity"

// GRPCHealth serves grpc.health.v1 and keeps its status in step with the
// readiness probe.
type GRPCHealth struct {
	srv       *health.Server
	readiness readinessChecker
}

// NewGRPCHealth starts in NOT_SERVING until the first Sync.
func NewGRPCHealth(r readinessChecker) *GRPCHealth {
	h := &GRPCHealth{srv: health.NewServer(), readiness: r}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to s.
func (h *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Sync runs the readiness probe once and publishes the result.
func (h *GRPCHealth) Sync(ctx context.Context) error {
	if err := h.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	obs.SetReady(true)
	h.set(healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run syncs every interval until ctx is done.
func (h *GRPCHealth) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		if err := h.Sync(checkCtx); err != nil && ctx.Err() == nil {
			obs.Warn("readiness check failed", map[string]any{"error": err})
		}
		cancel()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING ahead of a graceful stop.
func (h *GRPCHealth) Shutdown() { h.srv.Shutdown() }

func (h *GRPCHealth) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(serviceName, status)
}
