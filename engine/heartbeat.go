package engine

import (
	"context"
	"fmt"
	"time"

	"fixclient/metrics"
	"fixclient/session"
)

// heartbeatLoop is the Heartbeat task (spec.md §5): on each tick it sends
// a Heartbeat if nothing has gone out since the last interval, and
// checks whether the peer has gone quiet — sending a TestRequest and
// incrementing the missed-heartbeat counter if so. Crossing
// MaxMissedHeartBeats ends the connection (spec.md §4.3 "missed ≥
// MaxMissedHeartbeats → Disconnected; close; reconnect"), grounded on
// FIXConnectionHandler.expectedHeartbeat.
func (e *Engine) heartbeatLoop(ctx context.Context) error {
	interval := e.cfg.HeartBeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case <-ticker.C:
			if err := e.checkHeartbeat(interval); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) checkHeartbeat(interval time.Duration) error {
	if e.state.ConnectionState() != session.LoggedIn {
		return nil
	}

	if time.Since(e.state.LastSentAt()) >= interval {
		if err := e.sendHeartbeat(""); err != nil {
			e.logs.SessionLog.Errorw("heartbeat send failed", "error", err)
		} else {
			metrics.HeartbeatsSent.Inc()
		}
	}

	if time.Since(e.state.LastReceivedAt()) < interval {
		return nil
	}

	id := fmt.Sprintf("%d", time.Now().UnixNano())
	e.testMu.Lock()
	e.testRequestID = id
	e.testMu.Unlock()
	if err := e.sendTestRequest(id); err != nil {
		e.logs.SessionLog.Errorw("test request send failed", "error", err)
	}

	missed := e.state.IncrMissedHeartbeats()
	metrics.MissedHeartbeats.Inc()
	if missed >= e.cfg.MaxMissedHeartBeats {
		e.logs.SessionLog.Warnw("missed heartbeat threshold reached, disconnecting", "missed", missed)
		e.state.SetConnectionState(session.Disconnected)
		metrics.ConnectionState.Set(float64(session.Disconnected))
		e.closeConn()
		return fmt.Errorf("engine: missed heartbeat threshold reached (%d)", missed)
	}
	return nil
}
