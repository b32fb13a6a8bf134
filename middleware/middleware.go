// Package middleware wraps the client call path.
//
// An Invoker sends one request and registers its dispatch; it returns once the
// call is on the wire, not when the response arrives. Middlewares therefore
// see connect and send, while responses flow straight into the dispatch.
package middleware

import (
	"context"

	"mesh-rpc/dispatch"
	"mesh-rpc/message"
)

type Invoker func(ctx context.Context, req *message.Request, d dispatch.Dispatch) error

type Middleware func(next Invoker) Invoker

// Chain composes middlewares so that the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Invoker) Invoker {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
