package grpcctrl

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health entry reported for the CRM API.
const ServiceName = "jewelcrm.v1.API"

// RegisterServices registers the health service. The returned server lets
// the caller flip serving status during shutdown.
func RegisterServices(healthSrv *health.Server) func(s *grpc.Server) {
	return func(s *grpc.Server) {
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(s, healthSrv)
		reflection.Register(s)
	}
}
