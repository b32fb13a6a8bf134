package locator

import (
	"context"
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"mesh-rpc/client"
	"mesh-rpc/codec"
	"mesh-rpc/dispatch"
	"mesh-rpc/protocol"
	"mesh-rpc/registry"
	"mesh-rpc/server"

	"github.com/stretchr/testify/require"
)

// startLocator serves catalog and returns a Locator client connected to it.
func startLocator(t *testing.T, catalog *Catalog, opts ...client.Option) (*Locator, *server.Server) {
	t.Helper()
	srv := server.NewServer(ServiceName)
	Register(srv, catalog, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.ServeListener(ln)

	reg := registry.NewStaticRegistry()
	require.NoError(t, reg.Register(context.Background(), ServiceName, registry.ServiceInstance{Addr: ln.Addr().String()}, 0))

	svc := client.NewService(ServiceName, reg, append([]client.Option{client.WithHeartbeat(0)}, opts...)...)
	t.Cleanup(func() {
		svc.Close()
		srv.Shutdown(time.Second)
	})
	return New(svc, nil), srv
}

func storageInfo() Info {
	return Info{
		Endpoints: []netip.AddrPort{netip.MustParseAddrPort("127.0.0.1:10053")},
		Version:   1,
		Methods:   map[uint64]EventGraph{0: deepGraph()},
	}
}

func TestLocatorResolve(t *testing.T) {
	for _, c := range []codec.Codec{&codec.MsgpackCodec{}, &codec.JSONCodec{}} {
		t.Run(c.Type().String(), func(t *testing.T) {
			catalog := NewCatalog()
			catalog.SetService("storage", storageInfo())
			l, _ := startLocator(t, catalog, client.WithCodec(c))

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			info, err := l.Resolve(ctx, "storage").Wait(ctx)
			require.NoError(t, err)
			require.Equal(t, storageInfo(), info)

			_, err = l.Resolve(ctx, "missing").Wait(ctx)
			var remote *protocol.RemoteError
			require.ErrorAs(t, err, &remote)
			require.Equal(t, protocol.RemoteError{
				Category: ServiceName,
				Code:     CodeServiceNotAvailable,
				Message:  "service is not available",
			}, *remote)
		})
	}
}

func TestLocatorRoutingUpdates(t *testing.T) {
	catalog := NewCatalog()
	first := RoutingTable{"app": HashRing{{Hash: 5, Node: "node-a"}, {Hash: 99, Node: "node-b"}}}
	catalog.SetRouting(first)
	l, srv := startLocator(t, catalog)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream := l.Routing(ctx, "uuid-1")

	table, err := stream.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, first, table)

	second := RoutingTable{"app": HashRing{{Hash: 7, Node: "node-c"}}}
	catalog.SetRouting(second)
	table, err = stream.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, second, table)

	// Shutting the locator down ends the subscription cleanly.
	require.NoError(t, srv.Shutdown(time.Second))
	_, err = stream.Recv(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestLocatorRoutingConnectionLoss(t *testing.T) {
	catalog := NewCatalog()
	l, _ := startLocator(t, catalog)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream := l.Routing(ctx, "uuid-1")
	_, err := stream.Recv(ctx)
	require.NoError(t, err)

	svc := l.caller.(*client.Service)
	require.NoError(t, svc.Close())

	_, err = stream.Recv(ctx)
	require.Equal(t, protocol.ErrCancelled, err)
}

func TestLocatorAsResolver(t *testing.T) {
	// The echo service is found through the locator, not a registry.
	echo := server.NewServer("echo")
	echo.Handle(1, func(_ context.Context, _ *server.Request, w server.ResponseWriter) {
		w.Value("hello")
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go echo.ServeListener(ln)
	t.Cleanup(func() { echo.Shutdown(time.Second) })

	catalog := NewCatalog()
	catalog.SetService("echo", Info{
		Endpoints: []netip.AddrPort{netip.MustParseAddrPort(ln.Addr().String())},
		Version:   2,
	})
	l, _ := startLocator(t, catalog)

	svc := client.NewService("echo", l, client.WithHeartbeat(0))
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, future := dispatch.NewPrimitive[string]()
	require.NoError(t, svc.Call(ctx, 1, nil, d))
	v, err := future.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}
