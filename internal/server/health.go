package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "ashwini.console"

// HealthMonitor mirrors counter store reachability into a grpc.health.v1 server.
type HealthMonitor struct {
	hs       *health.Server
	store    numbering.CounterStore
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewHealthMonitor(store numbering.CounterStore, interval time.Duration, logger *slog.Logger) *HealthMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthMonitor{
		hs:       health.NewServer(),
		store:    store,
		interval: interval,
		timeout:  3 * time.Second,
		logger:   logger,
	}
}

// Server is the health service to register on a grpc.Server.
func (m *HealthMonitor) Server() *health.Server { return m.hs }

// Check pings the store once and updates the serving status.
func (m *HealthMonitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("counter store ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.hs.SetServingStatus("", status)
	m.hs.SetServingStatus(ServiceName, status)
	return status
}

// Run checks on every interval until ctx is done, then marks everything NOT_SERVING.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.hs.Shutdown()
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
