package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mesh-rpc/dispatch"
	"mesh-rpc/message"
)

var ErrTimeout = errors.New("middleware: request timed out")

// TimeoutMiddleware bounds connecting and sending. The deadline travels in
// ctx, so the connector gives up by itself instead of being abandoned.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			err := next(ctx, req, d)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return err
		}
	}
}
