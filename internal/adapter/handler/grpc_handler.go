package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// CatalogHealthService is the grpc.health.v1 service name that tracks the
// remote catalog connection.
const CatalogHealthService = "storefront.catalog"

type RemoteStatus interface {
	RemoteHealthy() bool
}

// HealthReporter serves grpc.health.v1. The server as a whole is always
// SERVING; the catalog service follows the last remote fetch.
type HealthReporter struct {
	server   *health.Server
	catalog  RemoteStatus
	interval time.Duration
	logger   *zap.Logger
}

func NewHealthReporter(catalog RemoteStatus, interval time.Duration, logger *zap.Logger) *HealthReporter {
	h := &HealthReporter{
		server:   health.NewServer(),
		catalog:  catalog,
		interval: interval,
		logger:   logger.Named("health"),
	}
	h.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	h.Update()
	return h
}

func (h *HealthReporter) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
}

// Update copies the current remote status into the health server.
func (h *HealthReporter) Update() grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if h.catalog.RemoteHealthy() {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(CatalogHealthService, status)
	return status
}

// Run polls the catalog status until ctx is done, then marks every
// service NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := h.Update()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			if status := h.Update(); status != last {
				h.logger.Info("catalog health changed", zap.Stringer("status", status))
				last = status
			}
		}
	}
}
