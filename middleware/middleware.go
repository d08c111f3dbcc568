// Package middleware implements the onion-model chain that wraps the two
// places application FixMessages cross the Engine's boundary: inbound
// delivery to the listener (spec.md §4.4) and outbound sends handed in by
// an external caller (spec.md §9 "producer ... → Engine.send").
//
// The shape is unchanged from the teacher's RPC middleware: cross-cutting
// concerns (logging, timeout, rate limiting) wrap a handler without
// modifying it.
//
// Onion model execution order:
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//
//	Request:   A.before → B.before → C.before → handler
//	Response:  handler → C.after → B.after → A.after
package middleware

import (
	"context"

	"fixclient/message"
)

// HandlerFunc is the signature for both the listener-delivery handler and
// the outbound-send handler: it takes one FixMessage and reports whether
// it succeeded. Unlike the teacher's RPC handler it returns no response
// message — delivery and send are one-way in this domain.
type HandlerFunc func(ctx context.Context, msg *message.FixMessage) error

// Middleware takes a handler and returns a new handler that wraps it.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes multiple middlewares into one, built right to left so the
// first middleware in the list is the outermost layer.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
