package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "activity-signup-service/internal/adapter/grpc"
	"activity-signup-service/pkg/logger"
)

// SetupGRPC creates the gRPC server carrying the health service
func SetupGRPC(health *grpcadapter.HealthService) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
		),
	)
	health.Register(grpcServer)
	reflection.Register(grpcServer)

	return grpcServer
}
