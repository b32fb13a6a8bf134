package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"mesh-rpc/dispatch"
	"mesh-rpc/message"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// sent simulates a transport that registers the call immediately.
func sent(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
	req.CallID = 1
	return nil
}

// slow simulates a connector that honours the context deadline.
func slow(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
	select {
	case <-time.After(200 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func request() *message.Request {
	return &message.Request{Service: "locator", Method: 0, Args: []any{"storage"}}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	invoke := LoggingMiddleware(zap.New(core))(sent)

	d, _ := dispatch.NewPrimitive[string]()
	require.NoError(t, invoke(context.Background(), request(), d))

	entries := logs.FilterMessage("call sent").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "locator", fields["service"])
	require.Equal(t, uint64(1), fields["call"])
}

func TestLoggingError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	boom := errors.New("boom")
	invoke := LoggingMiddleware(zap.New(core))(func(context.Context, *message.Request, dispatch.Dispatch) error {
		return boom
	})

	d, _ := dispatch.NewPrimitive[string]()
	require.ErrorIs(t, invoke(context.Background(), request(), d), boom)
	require.Equal(t, 1, logs.FilterMessage("call failed").Len())
}

func TestTimeoutPass(t *testing.T) {
	invoke := TimeoutMiddleware(500 * time.Millisecond)(sent)
	d, _ := dispatch.NewPrimitive[string]()
	require.NoError(t, invoke(context.Background(), request(), d))
}

func TestTimeoutExceeded(t *testing.T) {
	invoke := TimeoutMiddleware(50 * time.Millisecond)(slow)
	d, _ := dispatch.NewPrimitive[string]()

	err := invoke(context.Background(), request(), d)
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimit(t *testing.T) {
	// rate=1 per second, burst=2: the first two pass, the third is rejected.
	invoke := RateLimitMiddleware(1, 2)(sent)
	d, _ := dispatch.NewPrimitive[string]()

	for i := 0; i < 2; i++ {
		require.NoError(t, invoke(context.Background(), request(), d), "request %d", i)
	}
	require.ErrorIs(t, invoke(context.Background(), request(), d), ErrRateLimited)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Invoker) Invoker {
			return func(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
				order = append(order, name)
				return next(ctx, req, d)
			}
		}
	}

	invoke := Chain(tag("outer"), tag("inner"), TimeoutMiddleware(time.Second))(sent)
	d, _ := dispatch.NewPrimitive[string]()
	require.NoError(t, invoke(context.Background(), request(), d))
	require.Equal(t, []string{"outer", "inner"}, order)
}
