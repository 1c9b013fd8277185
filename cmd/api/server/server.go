package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"activity-signup-service/cmd/api/di"
	"activity-signup-service/internal/config"
)

// Server holds the HTTP and gRPC servers
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
	GRPC   *grpc.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	return &Server{
		Config: cfg,
		Logger: l,
		Gin:    SetupGinServer(c, httpAddress(cfg), l),
		GRPC:   SetupGRPC(c.Health),
	}
}

// Start runs the gRPC and HTTP servers and blocks until one of them fails
// or both are shut down.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	httpLis, err := lc.Listen(ctx, "tcp", s.Gin.Addr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen for HTTP: %w", err)
	}

	errCh := make(chan error, 2)

	go func() {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server: %w", err)
			return
		}
		errCh <- nil
	}()

	go func() {
		s.Logger.Info("HTTP server running", zap.String("address", httpLis.Addr().String()))
		if err := s.Gin.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// grpcAddress returns the gRPC server address
func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
