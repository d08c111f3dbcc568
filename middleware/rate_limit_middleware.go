package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"fixclient/message"
)

// RateLimitMiddleware throttles outbound application sends handed to the
// Engine by an external caller (spec.md §9: "callers submit messages
// through a bounded channel with backpressure"), using a token bucket so a
// caller can't flood the single outbound writer faster than the
// counterparty's gateway expects. Heartbeats and other FSM-originated
// admin traffic bypass this middleware entirely — it wraps only the
// caller-facing send path, never the session's own timers.
//
// CRITICAL: the limiter is created in the OUTER closure (once per
// middleware construction), not inside the inner handler — a fresh bucket
// per call would defeat rate limiting entirely.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *message.FixMessage) error {
			if !limiter.Allow() {
				return fmt.Errorf("middleware: outbound rate limit exceeded")
			}
			return next(ctx, msg)
		}
	}
}
