package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthClient probes the server's grpc.health.v1 service.
type GRPCHealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewGRPCHealthClient connects to the given gRPC address.
func NewGRPCHealthClient(addr string, opts ...grpc.DialOption) (*GRPCHealthClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCHealthClient{
		conn:   conn,
		client: healthpb.NewHealthClient(conn),
	}, nil
}

// Check returns the serving status of service ("" for the whole server),
// lower-cased the way the HTTP health route reports it.
func (c *GRPCHealthClient) Check(ctx context.Context, service string) (string, error) {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "", err
	}
	switch resp.GetStatus() {
	case healthpb.HealthCheckResponse_SERVING:
		return "ok", nil
	case healthpb.HealthCheckResponse_NOT_SERVING:
		return "not_serving", nil
	default:
		return "unknown", nil
	}
}

func (c *GRPCHealthClient) Close() error {
	return c.conn.Close()
}
