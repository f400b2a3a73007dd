// Package health serves the standard gRPC health protocol. Clients probe it
// to decide whether the persistence API is reachable.
package health

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "auditkeeper"

const DefaultCheckInterval = 5 * time.Second

// Checker reports whether a backing dependency is usable.
type Checker func(ctx context.Context) error

type Server struct {
	address  string
	check    Checker
	interval time.Duration
	hs       *health.Server
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, check Checker) *Server {
	return &Server{
		address:  address,
		check:    check,
		interval: DefaultCheckInterval,
		hs:       health.NewServer(),
		logger:   l.With("module", "health_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve answers health checks on listen until ctx is cancelled. While
// running, the dependency check is repeated every interval and flips the
// reported status between SERVING and NOT_SERVING.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.hs)

	s.update(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC health server...")
				s.hs.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.update(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

func (s *Server) update(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.check(checkCtx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "dependency check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(ServiceName, status)
}
