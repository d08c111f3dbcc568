package engine

import (
	"context"
	"fmt"
	"time"

	"fixclient/codec"
	"fixclient/logging"
	"fixclient/message"
	"fixclient/metrics"
	"fixclient/protocol"
	"fixclient/session"
)

// handleFrame is the entry point for every decoded inbound frame (spec.md
// §4.3's transition table, §2's "Engine.inbound handler"), grounded on
// FIXConnectionHandler.processMessage: check BeginString, mark liveness,
// then validate the sequence number before any admin/application
// dispatch.
func (e *Engine) handleFrame(ctx context.Context, msg *message.FixMessage) {
	metrics.InboundFrames.Inc()
	fields := []interface{}{"msgType", msg.MsgType, "seq", msg.MsgSeqNum}
	if frame, err := protocol.Encode(msg); err == nil {
		fields = append(fields, "frame", logging.RenderFrame(frame))
	}
	e.logs.MessageLog.Infow("received", fields...)

	if msg.BeginString != e.cfg.BeginString {
		e.protocolViolation(fmt.Sprintf("BeginString %q does not match configured %q", msg.BeginString, e.cfg.BeginString))
		return
	}

	e.state.MarkReceived()

	if msg.MsgType == message.MsgTypeLogon {
		if v, ok := msg.Get(message.TagResetSeqNumFlag); ok {
			if reset, _ := codec.AsBool(v); reset {
				e.state.Reset()
				e.replay.reset()
			}
		}
	}

	e.validateAndProcess(ctx, msg)
}

// validateAndProcess implements spec.md §4.2 validate_inbound: Expected
// messages are processed and advanced immediately; a Gap opens a
// ResendRequest and buffers the message; a Duplicate is ignored if
// PossDupFlag is set, otherwise it's a protocol violation (spec.md §9's
// canonical-FIX decision, superseding the original connector's
// treat-as-gap behavior).
func (e *Engine) validateAndProcess(ctx context.Context, msg *message.FixMessage) {
	result := e.state.ValidateInbound(msg.MsgSeqNum)
	switch result.Outcome {
	case session.Duplicate:
		if msg.PossDupFlag {
			e.logs.SessionLog.Debugw("duplicate replay ignored", "seq", msg.MsgSeqNum)
			return
		}
		metrics.SequenceDuplicates.Inc()
		e.protocolViolation(fmt.Sprintf("duplicate MsgSeqNum %d without PossDupFlag", msg.MsgSeqNum))
	case session.Gap:
		metrics.SequenceGaps.Inc()
		e.openGap(result.Expected, msg)
	default:
		e.processAndAdvance(ctx, msg)
		e.drainGapBuffer(ctx)
	}
}

// openGap records msg in the gap buffer and, if no ResendRequest is
// already outstanding, sends one covering [expected, msg.MsgSeqNum-1]
// (spec.md §4.3 "Gap fill on inbound").
func (e *Engine) openGap(expected uint32, msg *message.FixMessage) {
	e.gapMu.Lock()
	defer e.gapMu.Unlock()

	if !e.gapActive {
		e.gapActive = true
		e.gapFloor = expected
		if err := e.sendResendRequest(expected, msg.MsgSeqNum-1); err != nil {
			e.logs.SessionLog.Errorw("send ResendRequest failed", "error", err)
		} else {
			metrics.ResendRequestsSent.Inc()
		}
	}
	e.gapBuf[msg.MsgSeqNum] = msg
}

// drainGapBuffer delivers buffered messages in order once the gap closes
// (spec.md §8 S4: "listener receives them in order").
func (e *Engine) drainGapBuffer(ctx context.Context) {
	for {
		e.gapMu.Lock()
		if !e.gapActive {
			e.gapMu.Unlock()
			return
		}
		next := e.state.NextExpectedSeqNo()
		msg, ok := e.gapBuf[next]
		if !ok {
			e.gapMu.Unlock()
			return
		}
		delete(e.gapBuf, next)
		if len(e.gapBuf) == 0 {
			e.gapActive = false
		}
		e.gapMu.Unlock()

		e.processAndAdvance(ctx, msg)
	}
}

// processAndAdvance dispatches msg (admin to the FSM, application to the
// listener) then advances next_expected_seq_no and checkpoints — unless
// the message is a SequenceReset, which sets next_expected_seq_no
// directly, or the listener fails, which leaves the message undelivered
// (spec.md §4.4, §7 ListenerFailure/PersistenceFailure).
func (e *Engine) processAndAdvance(ctx context.Context, msg *message.FixMessage) {
	seq := msg.MsgSeqNum

	if message.IsAdmin(msg.MsgType) {
		if err := e.handleAdmin(ctx, msg); err != nil {
			e.logs.SessionLog.Errorw("admin message handling failed", "msgType", msg.MsgType, "error", err)
		}
	} else {
		if err := e.deliverChain(ctx, msg); err != nil {
			metrics.ListenerFailures.Inc()
			e.logs.SessionLog.Errorw("listener failed, message undelivered", "seq", seq, "error", err)
			e.protocolViolation("listener failure")
			return
		}
	}

	if msg.MsgType != message.MsgTypeSequenceReset {
		e.state.AdvanceInbound(seq)
	}

	if err := e.checkpoint(); err != nil {
		metrics.PersistenceFailures.Inc()
		e.logs.SessionLog.Errorw("checkpoint write failed, shutting down session", "error", err)
		e.Stop()
	}
}

// handleAdmin dispatches one administrative MsgType to its handler —
// the single switch that replaces the original connector's
// _sessionMessageHandler template method (spec.md §9).
func (e *Engine) handleAdmin(ctx context.Context, msg *message.FixMessage) error {
	switch msg.MsgType {
	case message.MsgTypeLogon:
		return e.onLogon(msg)
	case message.MsgTypeHeartbeat:
		return e.onHeartbeat(msg)
	case message.MsgTypeTestRequest:
		return e.onTestRequest(msg)
	case message.MsgTypeResendRequest:
		return e.onResendRequest(msg)
	case message.MsgTypeSequenceReset:
		return e.onSequenceReset(msg)
	case message.MsgTypeLogout:
		return e.onLogout(msg)
	case message.MsgTypeReject:
		return e.onReject(msg)
	default:
		return nil
	}
}

func (e *Engine) onLogon(msg *message.FixMessage) error {
	hbi, ok := msg.Get(message.TagHeartBtInt)
	seconds := codecViewInt(hbi, ok, int(e.cfg.HeartBeatInterval/time.Second))
	if seconds > 0 {
		e.cfg.HeartBeatInterval = time.Duration(seconds) * time.Second
	}

	e.state.SetConnectionState(session.LoggedIn)
	e.state.ResetLogonAttempts()
	metrics.ConnectionState.Set(float64(session.LoggedIn))
	e.logs.SessionLog.Infow("logon accepted, session established", "heartBtInt", e.cfg.HeartBeatInterval)
	return nil
}

// onHeartbeat validates the echoed TestReqID against the most recent one
// this engine issued, per spec.md §9's canonical decision: a Heartbeat
// whose 112 doesn't match an outstanding TestRequest is accepted as a
// liveness signal (MarkReceived already reset the missed counter) but
// its echo is ignored rather than treated as proof of that specific
// TestRequest.
func (e *Engine) onHeartbeat(msg *message.FixMessage) error {
	v, ok := msg.Get(message.TagTestReqID)
	if !ok {
		return nil
	}
	e.testMu.Lock()
	defer e.testMu.Unlock()
	if e.testRequestID != "" && string(v) == e.testRequestID {
		e.testRequestID = ""
	} else {
		e.logs.SessionLog.Debugw("heartbeat echoed unrecognized TestReqID, ignoring", "got", string(v))
	}
	return nil
}

func (e *Engine) onTestRequest(msg *message.FixMessage) error {
	id, _ := msg.Get(message.TagTestReqID)
	return e.sendHeartbeat(string(id))
}

func (e *Engine) onResendRequest(msg *message.FixMessage) error {
	beginV, ok := msg.Get(message.TagBeginSeqNo)
	if !ok {
		return fmt.Errorf("engine: ResendRequest missing BeginSeqNo")
	}
	begin, err := codec.AsInt(beginV)
	if err != nil {
		return fmt.Errorf("engine: ResendRequest BeginSeqNo: %w", err)
	}

	end := 0
	if endV, ok := msg.Get(message.TagEndSeqNo); ok {
		end, err = codec.AsInt(endV)
		if err != nil {
			return fmt.Errorf("engine: ResendRequest EndSeqNo: %w", err)
		}
	}
	if end == 0 {
		end = int(e.state.OutboundSeqNo()) - 1
	}

	return e.replayRange(uint32(begin), uint32(end))
}

// replayRange answers a ResendRequest: application messages are replayed
// verbatim with PossDupFlag=Y; consecutive admin messages are collapsed
// into a single SequenceReset-GapFill (spec.md §4.3 "Outbound replay").
func (e *Engine) replayRange(begin, end uint32) error {
	records := e.replay.rangeFor(begin, end)
	i := 0
	for i < len(records) {
		if records[i].isAdmin {
			j := i
			for j < len(records) && records[j].isAdmin {
				j++
			}
			if err := e.sendGapFill(records[i].seq, records[j-1].seq+1); err != nil {
				return err
			}
			i = j
			continue
		}
		if err := e.writeReplay(records[i]); err != nil {
			return err
		}
		i++
	}
	metrics.ResendRequestsServed.Inc()
	return nil
}

func (e *Engine) onSequenceReset(msg *message.FixMessage) error {
	v, ok := msg.Get(message.TagNewSeqNo)
	if !ok {
		return fmt.Errorf("engine: SequenceReset missing NewSeqNo")
	}
	n, err := codec.AsInt(v)
	if err != nil {
		return fmt.Errorf("engine: SequenceReset NewSeqNo: %w", err)
	}
	e.state.SetNextExpected(uint32(n))
	e.logs.SessionLog.Infow("sequence reset", "newSeqNo", n)
	return nil
}

// onLogout handles both directions: if this engine already initiated a
// Logout and is awaiting the peer's echo, it signals the waiter; if the
// peer initiated it, the engine echoes Logout and closes.
func (e *Engine) onLogout(msg *message.FixMessage) error {
	e.logoutAckMu.Lock()
	ackCh := e.logoutAckCh
	e.logoutAckMu.Unlock()
	if ackCh != nil {
		select {
		case ackCh <- struct{}{}:
		default:
		}
		return nil
	}

	reply := message.New(message.MsgTypeLogout)
	if err := e.sendMessage(reply, true); err != nil {
		e.logs.SessionLog.Errorw("failed to echo Logout", "error", err)
	}
	e.state.SetConnectionState(session.LoggedOut)
	metrics.ConnectionState.Set(float64(session.LoggedOut))
	e.closeConn()
	return nil
}

func (e *Engine) onReject(msg *message.FixMessage) error {
	refSeq, _ := msg.Get(message.TagRefSeqNum)
	reason, _ := msg.Get(message.TagSessionRejectReason)
	text, _ := msg.Get(message.TagText)
	e.logs.SessionLog.Warnw("received Reject", "refSeqNum", string(refSeq), "reason", string(reason), "text", string(text))
	return nil
}

// protocolViolation implements spec.md §7's ProtocolViolation recovery:
// log, send Logout with the reason in tag 58, disconnect. The Logout
// send is best-effort — the session is already being torn down.
func (e *Engine) protocolViolation(reason string) {
	e.logs.SessionLog.Errorw("protocol violation", "reason", reason)
	m := message.New(message.MsgTypeLogout)
	m.SetString(message.TagText, reason)
	_ = e.sendMessage(m, true)
	e.state.SetConnectionState(session.LoggedOut)
	metrics.ConnectionState.Set(float64(session.LoggedOut))
	e.closeConn()
}

func (e *Engine) checkpoint() error {
	return e.store.Save(e.state.Snapshot())
}
