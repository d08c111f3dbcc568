package engine

import (
	"fmt"
	"time"

	"fixclient/codec"
	"fixclient/logging"
	"fixclient/message"
	"fixclient/metrics"
	"fixclient/protocol"
	"fixclient/session"
)

// sendMessage stamps msg with the next outbound seq-num and current
// SendingTime, encodes it, and writes it to the socket, all while holding
// Session State's single mutex (spec.md §5: "the sequence-number stamp
// and the socket write happen atomically"). On success the message is
// retained in the replay store and the checkpoint is persisted; a
// checkpoint failure is a PersistenceFailure (spec.md §7) — the write
// already reached the wire and cannot be rolled back, so the sequence
// counter stands, but the session is shut down.
func (e *Engine) sendMessage(msg *message.FixMessage, isAdmin bool) error {
	conn := e.currentConn()
	if conn == nil {
		return fmt.Errorf("engine: not connected")
	}

	err := e.state.WithOutboundLock(func(nextSeq uint32) error {
		msg.BeginString = e.cfg.BeginString
		msg.SenderCompID = e.identity.sender
		msg.TargetCompID = e.identity.target
		msg.MsgSeqNum = nextSeq
		msg.SendingTime = codec.FormatUTCTimestamp(time.Now())

		frame, err := protocol.Encode(msg)
		if err != nil {
			return fmt.Errorf("engine: encode: %w", err)
		}
		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("engine: write: %w", err)
		}

		e.logs.MessageLog.Infow("sent", "msgType", msg.MsgType, "seq", nextSeq, "frame", logging.RenderFrame(frame))
		metrics.OutboundFrames.Inc()
		metrics.OutboundSeqNo.Set(float64(nextSeq + 1))
		e.replay.record(nextSeq, isAdmin, msg)
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.checkpoint(); err != nil {
		metrics.PersistenceFailures.Inc()
		e.logs.SessionLog.Errorw("checkpoint write failed, shutting down session", "error", err)
		e.Stop()
		return err
	}
	return nil
}

// writeReplay re-sends a previously sent application message verbatim
// except for PossDupFlag/OrigSendingTime, at its original seq-num — it
// does not consume a new one. Used to answer a peer ResendRequest
// (spec.md §4.3).
func (e *Engine) writeReplay(rec replayRecord) error {
	conn := e.currentConn()
	if conn == nil {
		return fmt.Errorf("engine: not connected")
	}
	return e.state.WithWriteLock(func() error {
		clone := *rec.msg
		clone.PossDupFlag = true
		clone.OrigSendingTime = rec.msg.SendingTime
		clone.SendingTime = codec.FormatUTCTimestamp(time.Now())

		frame, err := protocol.Encode(&clone)
		if err != nil {
			return fmt.Errorf("engine: encode replay: %w", err)
		}
		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("engine: write replay: %w", err)
		}
		e.logs.MessageLog.Infow("replayed", "msgType", clone.MsgType, "seq", clone.MsgSeqNum, "frame", logging.RenderFrame(frame))
		metrics.OutboundFrames.Inc()
		return nil
	})
}

// sendGapFill emits a SequenceReset-GapFill (35=4 123=Y 36=newSeq) in
// place of replaying a run of admin messages (spec.md §4.3). Its own
// MsgSeqNum is fromSeq — the first admin seq-num in the run being
// skipped — and it does not consume a new outbound seq-num.
func (e *Engine) sendGapFill(fromSeq, newSeq uint32) error {
	conn := e.currentConn()
	if conn == nil {
		return fmt.Errorf("engine: not connected")
	}
	return e.state.WithWriteLock(func() error {
		m := message.New(message.MsgTypeSequenceReset)
		m.BeginString = e.cfg.BeginString
		m.SenderCompID = e.identity.sender
		m.TargetCompID = e.identity.target
		m.MsgSeqNum = fromSeq
		m.SendingTime = codec.FormatUTCTimestamp(time.Now())
		m.SetString(message.TagGapFillFlag, message.YesValue)
		m.SetInt(message.TagNewSeqNo, int(newSeq))

		frame, err := protocol.Encode(m)
		if err != nil {
			return fmt.Errorf("engine: encode gap-fill: %w", err)
		}
		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("engine: write gap-fill: %w", err)
		}
		e.logs.MessageLog.Infow("gap-fill", "from", fromSeq, "newSeqNo", newSeq, "frame", logging.RenderFrame(frame))
		metrics.OutboundFrames.Inc()
		return nil
	})
}

// sendReject emits a 35=Reject referencing refSeq (0 when the originating
// frame's seq-num couldn't be determined, e.g. a checksum failure), a
// SessionRejectReason (tag 373), the specific tag at fault when known
// (tag 371, 0 to omit), and free text (spec.md §4.3 Reject path:
// "referencing tag 45 and reason 371/373 where applicable").
func (e *Engine) sendReject(refSeq uint32, reason int, refTagID message.Tag, text string) error {
	if e.currentConn() == nil {
		return nil
	}
	m := message.New(message.MsgTypeReject)
	if refSeq > 0 {
		m.SetInt(message.TagRefSeqNum, int(refSeq))
	}
	m.SetInt(message.TagSessionRejectReason, reason)
	if refTagID != 0 {
		m.SetInt(message.TagRefTagID, int(refTagID))
	}
	if text != "" {
		m.SetString(message.TagText, text)
	}
	return e.sendMessage(m, true)
}

func (e *Engine) sendLogon() error {
	m := message.New(message.MsgTypeLogon)
	m.SetString(message.TagEncryptMethod, "0")
	m.SetInt(message.TagHeartBtInt, int(e.cfg.HeartBeatInterval/time.Second))
	if e.cfg.ResetSeqNum {
		m.SetString(message.TagResetSeqNumFlag, message.YesValue)
	}
	if e.cfg.SenderPassword != "" {
		m.Set(message.TagPassword, []byte(e.cfg.SenderPassword))
	}
	return e.sendMessage(m, true)
}

func (e *Engine) sendHeartbeat(testReqID string) error {
	m := message.New(message.MsgTypeHeartbeat)
	if testReqID != "" {
		m.SetString(message.TagTestReqID, testReqID)
	}
	return e.sendMessage(m, true)
}

func (e *Engine) sendTestRequest(id string) error {
	m := message.New(message.MsgTypeTestRequest)
	m.SetString(message.TagTestReqID, id)
	return e.sendMessage(m, true)
}

func (e *Engine) sendResendRequest(begin, end uint32) error {
	m := message.New(message.MsgTypeResendRequest)
	m.SetInt(message.TagBeginSeqNo, int(begin))
	m.SetInt(message.TagEndSeqNo, int(end))
	return e.sendMessage(m, true)
}

// closeConn closes and clears the active connection; safe to call
// multiple times or when no connection is active.
func (e *Engine) closeConn() {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}

// initiateLogout sends a local Logout and waits (bounded by
// cfg.LogoutTimeout) for the peer's echo before closing the connection
// (spec.md §5 "Logout: bounded wait ... then force close").
func (e *Engine) initiateLogout(reason string) {
	ackCh := make(chan struct{}, 1)
	e.logoutAckMu.Lock()
	e.logoutAckCh = ackCh
	e.logoutAckMu.Unlock()
	defer func() {
		e.logoutAckMu.Lock()
		if e.logoutAckCh == ackCh {
			e.logoutAckCh = nil
		}
		e.logoutAckMu.Unlock()
	}()

	m := message.New(message.MsgTypeLogout)
	if reason != "" {
		m.SetString(message.TagText, reason)
	}
	if err := e.sendMessage(m, true); err != nil {
		e.logs.SessionLog.Errorw("failed to send Logout", "error", err)
	}
	e.state.SetConnectionState(session.LoggedOut)
	metrics.ConnectionState.Set(float64(session.LoggedOut))

	timeout := e.cfg.LogoutTimeout
	if timeout <= 0 {
		timeout = 2 * e.cfg.HeartBeatInterval
	}
	select {
	case <-ackCh:
	case <-time.After(timeout):
		e.logs.SessionLog.Warnw("peer did not echo Logout within timeout, forcing close")
	case <-e.stopCh:
	}
	e.closeConn()
}
