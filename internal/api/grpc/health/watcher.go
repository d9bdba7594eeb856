// Package health keeps the gRPC health service in step with the credential
// store.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// Service is the name the credential service reports under. The empty name
// tracks the server as a whole and follows the same status.
const Service = "authkeeper.Credentials"

const pingTimeout = 2 * time.Second

// Watcher polls the store and publishes its reachability.
type Watcher struct {
	server *health.Server
	store  model.Pinger
	logger *logger.Logger
}

func NewWatcher(server *health.Server, store model.Pinger, logger *logger.Logger) *Watcher {
	return &Watcher{server: server, store: store, logger: logger}
}

// Run checks the store once immediately and then on every tick until ctx is
// done, after which every service is reported NOT_SERVING.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	w.Check(ctx)
	if interval <= 0 {
		<-ctx.Done()
		w.server.Shutdown()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.server.Shutdown()
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check pings the store and returns the status it published.
func (w *Watcher) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := w.store.Ping(pingCtx); err != nil {
		w.logger.Warn("Health watcher: store unreachable", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	w.server.SetServingStatus("", status)
	w.server.SetServingStatus(Service, status)
	return status
}
