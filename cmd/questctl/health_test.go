package main

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"questchain/rpc"
)

func TestHealthCommand(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	srv := rpc.NewHealthServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, lis) }()

	original := dialOptions
	dialOptions = func() []grpc.DialOption {
		return []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		}
	}
	t.Cleanup(func() { dialOptions = original })

	var out bytes.Buffer
	err := run([]string{"health", "-addr", "passthrough:///bufnet"}, nil, &out)
	require.ErrorContains(t, err, "NOT_SERVING")
	require.Contains(t, out.String(), "NOT_SERVING")

	srv.SetServing(true)
	out.Reset()
	require.NoError(t, run([]string{"health", "-addr", "passthrough:///bufnet"}, nil, &out))
	require.Contains(t, out.String(), `"SERVING"`)
}
