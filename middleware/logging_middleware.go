package middleware

import (
	"context"
	"time"

	"mesh-rpc/dispatch"
	"mesh-rpc/message"

	"go.uber.org/zap"
)

func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
			start := time.Now()
			err := next(ctx, req, d)

			fields := []zap.Field{
				zap.String("service", req.Service),
				zap.Uint64("method", req.Method),
				zap.Uint64("call", req.CallID),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("call failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("call sent", fields...)
			return nil
		}
	}
}
