package httpapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"contratos.app/internal/obs"
)

// GRPCHealth implements grpc.health.v1.Health on top of the readiness probe,
// so orchestrators can use their stock gRPC health checks.
type GRPCHealth struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
}

// NewGRPCHealth creates the health service wrapper.
func NewGRPCHealth(r readinessChecker) *GRPCHealth {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCHealth{readiness: r}
}

// NewGRPCServer returns a server with the health service registered.
func NewGRPCServer(r readinessChecker, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, NewGRPCHealth(r))
	return srv
}

// Check evaluates readiness for the whole server ("") or serviceName.
func (s *GRPCHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch req.GetService() {
	case "", serviceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
