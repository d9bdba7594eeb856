package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/authkeeper/internal/mocks"
	"github.com/dtroode/authkeeper/internal/testutil"
)

func currentStatus(t *testing.T, srv *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestWatcher_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pingErr error
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{name: "store reachable", want: healthpb.HealthCheckResponse_SERVING},
		{name: "store down", pingErr: errors.New("connection refused"), want: healthpb.HealthCheckResponse_NOT_SERVING},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := mocks.NewPinger(t)
			store.On("Ping", mock.Anything).Return(tt.pingErr).Once()

			srv := health.NewServer()
			w := NewWatcher(srv, store, testutil.MakeNoopLogger())

			got := w.Check(context.Background())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, currentStatus(t, srv, ""))
			assert.Equal(t, tt.want, currentStatus(t, srv, Service))
		})
	}
}

func TestWatcher_Run_RecoversAndShutsDown(t *testing.T) {
	t.Parallel()

	store := mocks.NewPinger(t)
	store.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	store.On("Ping", mock.Anything).Return(nil)

	srv := health.NewServer()
	w := NewWatcher(srv, store, testutil.MakeNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return currentStatus(t, srv, Service) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, currentStatus(t, srv, Service))
}
