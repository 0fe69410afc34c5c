package server

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given a running health server
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	server := NewHealthServer(logs.GetLoggerFromLevel(slog.LevelDebug), "chat-relay.worker")
	done := make(chan error, 1)
	go func() { done <- server.Serve(listener) }()

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		req.NoError(err)
		return resp.GetStatus()
	}

	// Then it starts as not serving
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check(""))

	// When the worker is up
	server.SetServing(true)

	// Then both the overall and the named status are serving
	req.Equal(healthpb.HealthCheckResponse_SERVING, check(""))
	req.Equal(healthpb.HealthCheckResponse_SERVING, check("chat-relay.worker"))

	// When stopping, Serve returns cleanly
	server.Stop()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("server did not stop")
	}
}
