package engine

import (
	"context"
	"fmt"
	"net"
	"time"

	"fixclient/message"
	"fixclient/metrics"
	"fixclient/protocol"
	"fixclient/session"
)

// Run is the Supervisor task (spec.md §5): it drives (re)connection —
// open socket, start reader/heartbeat/outbound tasks, await termination,
// close, back off, retry — until the session logs out gracefully, Stop
// is called, ctx is cancelled, or MaxReconnectAttempts is exhausted.
// Per spec.md §9 ("Constructors allocate only ... must expose an
// explicit run()"), no goroutine runs before Run is called.
func (e *Engine) Run(ctx context.Context) error {
	defer e.logs.Close()

	for {
		select {
		case <-e.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		attempts, _ := e.state.RecordLogonAttempt()
		if attempts > e.cfg.MaxReconnectAttempts {
			return fmt.Errorf("engine: exhausted %d reconnect attempts", e.cfg.MaxReconnectAttempts)
		}

		conn, addr, err := e.connectOnce()
		if err != nil {
			metrics.ReconnectAttempts.Inc()
			e.logs.SessionLog.Errorw("connect failed", "addr", addr, "attempt", attempts, "error", err)
			if !e.sleepBackoff(ctx) {
				return nil
			}
			continue
		}
		metrics.ReconnectAttempts.Inc()

		e.setConn(conn)
		e.resetDecoder()
		e.state.SetConnectionState(session.Connected)
		metrics.ConnectionState.Set(float64(session.Connected))
		e.logs.SessionLog.Infow("connected", "addr", addr, "attempt", attempts)

		connErr := e.runConnection(ctx, conn)
		if connErr != nil {
			e.logs.SessionLog.Warnw("connection ended", "error", connErr)
		}

		select {
		case <-e.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if e.state.ConnectionState() == session.LoggedOut {
			// Graceful logout, local or peer-initiated: the session
			// ended on purpose, don't reconnect automatically.
			return connErr
		}

		if !e.sleepBackoff(ctx) {
			return nil
		}
	}
}

// runConnection starts the reader, heartbeat, and outbound tasks for one
// live connection, sends Logon, and waits for either task to terminate
// (socket error, missed-heartbeat disconnect, or cancellation). It always
// waits for all three tasks to actually return before giving the
// connection back, satisfying spec.md §5's cancellation-safety guarantee.
func (e *Engine) runConnection(ctx context.Context, conn net.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, 3)
	go func() { results <- e.readLoop(connCtx, conn) }()
	go func() { results <- e.heartbeatLoop(connCtx) }()
	go func() { results <- e.outboundLoop(connCtx) }()

	if err := e.sendLogon(); err != nil {
		cancel()
		e.closeConn()
		e.drainResults(results, 3)
		return fmt.Errorf("engine: send logon: %w", err)
	}

	if !e.awaitLogon(connCtx) {
		cancel()
		e.closeConn()
		e.drainResults(results, 3)
		return fmt.Errorf("engine: logon timed out after %s", e.cfg.LogonTimeout)
	}

	var err error
	consumed := 0
	select {
	case err = <-results:
		consumed = 1
	case <-e.stopCh:
	case <-ctx.Done():
		err = ctx.Err()
	}

	cancel()
	e.closeConn()
	e.drainResults(results, 3-consumed)
	return err
}

func (e *Engine) drainResults(ch <-chan error, n int) {
	for i := 0; i < n; i++ {
		<-ch
	}
}

// awaitLogon polls Session State's connection tag until it reaches
// LoggedIn, cfg.LogonTimeout elapses, or ctx is cancelled (spec.md §5
// "Logon: configurable (default 10 s); on timeout the session
// disconnects").
func (e *Engine) awaitLogon(ctx context.Context) bool {
	timeout := e.cfg.LogonTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

	for {
		if e.state.ConnectionState() == session.LoggedIn {
			return true
		}
		select {
		case <-poll.C:
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// connectOnce resolves the gateway endpoint to dial — via
// discovery+loadbalance when both are configured, falling back to
// cfg.SocketHost/SocketPort — and dials it.
func (e *Engine) connectOnce() (net.Conn, string, error) {
	addr := fmt.Sprintf("%s:%d", e.cfg.SocketHost, e.cfg.SocketPort)

	if e.directory != nil && e.balancer != nil {
		endpoints, err := e.directory.Discover(e.identity.target)
		if err == nil && len(endpoints) > 0 {
			if ep, err := e.balancer.Pick(endpoints); err == nil && ep != nil {
				addr = ep.Addr
			}
		}
	}

	conn, err := e.dial(addr)
	if err != nil {
		return nil, addr, err
	}
	return conn, addr, nil
}

// sleepBackoff waits out whatever delay reconnectLimiter's token bucket
// demands (spec.md §4.3 "Reconnect policy"), returning false if the
// session was stopped or ctx cancelled during the wait.
func (e *Engine) sleepBackoff(ctx context.Context) bool {
	delay := e.reconnectLimiter.Reserve().Delay()
	if delay <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-e.stopCh:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-e.stopCh:
		return false
	}
}

// resetDecoder installs a fresh streaming decoder for a new connection —
// no partial frame from a dropped connection should be fed into the next
// one — and rewires the corrupt-frame callback.
func (e *Engine) resetDecoder() {
	d := protocol.NewDecoder()
	d.OnCorruptFrame(func(err error) {
		metrics.CorruptFrames.Inc()
		e.logs.MessageLog.Warnw("corrupt frame discarded", "error", err)
		reason := message.SessionRejectReasonOther
		var refTagID message.Tag
		if cfe, ok := err.(*protocol.CorruptFrameError); ok {
			refTagID = cfe.RefTagID
			if refTagID == message.TagCheckSum {
				reason = message.SessionRejectReasonValueIncorrect
			}
		}
		if sendErr := e.sendReject(0, reason, refTagID, err.Error()); sendErr != nil {
			e.logs.SessionLog.Debugw("could not send Reject for corrupt frame", "error", sendErr)
		}
	})
	e.decoder = d
}
