package engine

import (
	"context"
	"net"
)

// readLoop is the Reader task (spec.md §5): it reads from the socket,
// feeds the decoder, and dispatches each complete frame to handleFrame.
// It returns when the connection is closed (by either side, or by
// closeConn during teardown) or the connection context is cancelled.
// Grounded on FIXConnectionHandler.readMessage's read-append-extract
// loop, generalized from "one message per read" to "however many
// messages Feed yields per chunk".
func (e *Engine) readLoop(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		default:
		}

		n, err := conn.Read(buf)
		if n > 0 {
			for _, msg := range e.decoder.Feed(buf[:n]) {
				e.handleFrame(ctx, msg)
			}
		}
		if err != nil {
			return err
		}
	}
}
