package router

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authkeeper/internal/api/grpc/middleware"
	"github.com/dtroode/authkeeper/internal/logger"
)

// Router builds the operational gRPC server: health checking and reflection.
type Router struct {
	health *health.Server
	logger *logger.Logger
}

// New creates new gRPC Router instance.
//
// Parameters:
//   - health: The health server whose statuses the caller keeps updated
//   - logger: The logger for request logging and recovered panics
//
// Returns a pointer to the newly created Router instance.
func New(health *health.Server, logger *logger.Logger) *Router {
	return &Router{health: health, logger: logger}
}

// Register creates the gRPC server with logging and panic recovery installed.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoveryOpt := recovery.WithRecoveryHandlerContext(r.handlePanic)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoveryOpt),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleStream,
			recovery.StreamServerInterceptor(recoveryOpt),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}

func (r *Router) handlePanic(_ context.Context, p any) error {
	r.logger.Error("gRPC handler panicked", "panic", fmt.Sprint(p))
	return status.Error(codes.Internal, "internal server error")
}
