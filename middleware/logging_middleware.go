package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fixclient/message"
)

// LoggingMiddleware records the message type, seq-num, and duration of
// every handler invocation, plus any error — the session.log line for
// each delivery/send, grounded on the teacher's per-call logging
// middleware but against the structured logger instead of "log".
func LoggingMiddleware(logger *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *message.FixMessage) error {
			start := time.Now()
			err := next(ctx, msg)
			duration := time.Since(start)

			fields := []interface{}{
				"msgType", msg.MsgType,
				"seqNum", msg.MsgSeqNum,
				"duration", duration,
			}
			if err != nil {
				logger.Errorw("handler failed", append(fields, "error", err)...)
			} else {
				logger.Debugw("handler completed", fields...)
			}
			return err
		}
	}
}
