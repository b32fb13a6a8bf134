package middleware

import (
	"context"
	"errors"

	"mesh-rpc/dispatch"
	"mesh-rpc/message"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("middleware: rate limit exceeded")

// RateLimitMiddleware rejects calls above r per second using a token bucket
// of size burst.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Invoker) Invoker {
		return func(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
			if !limiter.Allow() {
				return ErrRateLimited
			}
			return next(ctx, req, d)
		}
	}
}
