package connectivity

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthProber asks the server's gRPC health service whether service
// is serving. An empty service name checks the server as a whole.
type GRPCHealthProber struct {
	client  healthpb.HealthClient
	service string
}

func NewGRPCHealthProber(conn grpc.ClientConnInterface, service string) *GRPCHealthProber {
	return &GRPCHealthProber{client: healthpb.NewHealthClient(conn), service: service}
}

// DialHealth opens a plaintext connection for health probing. The
// connection is established lazily on the first probe.
func DialHealth(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func (p *GRPCHealthProber) Probe(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s", resp.GetStatus())
	}
	return nil
}

// Pinger is satisfied by the remote HTTP client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPProber probes through the persistence API's health endpoint.
type HTTPProber struct {
	pinger Pinger
}

func NewHTTPProber(p Pinger) *HTTPProber {
	return &HTTPProber{pinger: p}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	return p.pinger.Ping(ctx)
}
