package middleware

import (
	"context"
	"fmt"
	"time"

	"fixclient/message"
)

// TimeoutMiddleware bounds how long listener delivery (spec.md §4.4) is
// allowed to run before the engine treats it as a ListenerFailure
// (spec.md §7: "propagates as ProtocolViolation"). A listener that never
// returns would otherwise wedge the Reader task forever, since delivery
// is synchronous and ordered.
//
// The handler goroutine is NOT cancelled when the timeout fires — it
// keeps running in the background; ctx being done only ends this call's
// wait. True cancellation requires the listener to observe ctx.Done()
// itself.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *message.FixMessage) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1) // buffered: avoid leaking the goroutine on timeout
			go func() {
				done <- next(ctx, msg)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return fmt.Errorf("middleware: listener delivery timed out after %s", timeout)
			}
		}
	}
}
