package engine

import "context"

// outboundLoop is the single consumer of the bounded outbound channel
// (spec.md §9: "only the Engine task writes to the socket; callers
// submit messages through a bounded channel with backpressure"). It runs
// for the lifetime of one connection; a request left on the channel when
// the connection ends stays queued for the next connection's loop, so
// Send's callers block until some loop has handled their request or
// their own ctx is done.
func (e *Engine) outboundLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case req := <-e.outbound:
			err := e.sendChain(ctx, req.msg)
			req.result <- err
		}
	}
}
