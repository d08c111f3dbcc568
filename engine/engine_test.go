package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"fixclient/config"
	"fixclient/logging"
	"fixclient/message"
	"fixclient/protocol"
	"fixclient/session"
)

// memStore is an in-memory session.Store, used in place of FileStore so
// tests don't touch the filesystem for checkpoint persistence.
type memStore struct {
	rec map[string]session.Checkpoint
}

func newMemStore() *memStore { return &memStore{rec: make(map[string]session.Checkpoint)} }

func (m *memStore) Load(senderCompID string) (session.Checkpoint, bool, error) {
	rec, ok := m.rec[senderCompID]
	return rec, ok, nil
}

func (m *memStore) Save(rec session.Checkpoint) error {
	m.rec[rec.SenderCompID] = rec
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		BeginString:          "FIX.4.4",
		SenderCompID:         "CLIENT",
		TargetCompID:         "SRV",
		SocketHost:           "test",
		SocketPort:           1,
		HeartBeatInterval:    30 * time.Second,
		MaxReconnectAttempts: 3,
		ReconnectInterval:    10 * time.Millisecond,
		MaxMissedHeartBeats:  2,
		LogonTimeout:         2 * time.Second,
		LogoutTimeout:        2 * time.Second,
	}
}

// newTestEngine builds an Engine wired to a single net.Pipe connection: the
// returned net.Conn is the "gateway" side the test drives directly. Only
// the first connectOnce call succeeds; later calls (if the test forces a
// reconnect) return context.Canceled, so Run gives up once
// MaxReconnectAttempts is exhausted instead of spinning.
func newTestEngine(t *testing.T, cfg *config.Config, listener Listener) (*Engine, net.Conn) {
	t.Helper()

	logs, err := logging.New(t.TempDir(), cfg.SenderCompID)
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	t.Cleanup(func() { _ = logs.Close() })

	e, err := New(cfg, listener, newMemStore(), logs, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clientConn, gatewayConn := net.Pipe()
	dialed := false
	e.Dial(func(addr string) (net.Conn, error) {
		if dialed {
			return nil, context.Canceled
		}
		dialed = true
		return clientConn, nil
	})

	return e, gatewayConn
}

// readGatewayFrame reads and decodes exactly one frame off conn.
func readGatewayFrame(t *testing.T, conn net.Conn) *message.FixMessage {
	t.Helper()
	dec := protocol.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("gateway read: %v", err)
		}
		if msgs := dec.Feed(buf[:n]); len(msgs) > 0 {
			return msgs[0]
		}
	}
}

func writeGatewayFrame(t *testing.T, conn net.Conn, m *message.FixMessage) {
	t.Helper()
	frame, err := protocol.Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("gateway write: %v", err)
	}
}

func logonReply(seq uint32, heartBtInt int, resetSeqNum bool) *message.FixMessage {
	m := message.New(message.MsgTypeLogon)
	m.BeginString = "FIX.4.4"
	m.SenderCompID = "SRV"
	m.TargetCompID = "CLIENT"
	m.MsgSeqNum = seq
	m.SendingTime = "20260101-00:00:00.000"
	m.SetInt(message.TagHeartBtInt, heartBtInt)
	if resetSeqNum {
		m.SetString(message.TagResetSeqNumFlag, message.YesValue)
	}
	return m
}

func waitForState(t *testing.T, e *Engine, want session.ConnectionState, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if e.State().ConnectionState() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for connection state %s, got %s", want, e.State().ConnectionState())
		case <-time.After(time.Millisecond):
		}
	}
}

// TestLogonRoundTrip exercises spec.md §8 S1: the engine sends Logon at
// seq 1, the peer replies Logon, and the session reaches LoggedIn with
// next_expected_seq_no == 2.
func TestLogonRoundTrip(t *testing.T) {
	cfg := testConfig()
	e, gw := newTestEngine(t, cfg, ListenerFunc(func(ctx context.Context, msg *message.FixMessage) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	sent := readGatewayFrame(t, gw)
	if sent.MsgType != message.MsgTypeLogon || sent.MsgSeqNum != 1 {
		t.Fatalf("expected outbound Logon at seq 1, got %+v", sent)
	}

	writeGatewayFrame(t, gw, logonReply(1, 30, false))

	waitForState(t, e, session.LoggedIn, time.Second)
	if got := e.State().NextExpectedSeqNo(); got != 2 {
		t.Errorf("expected next_expected_seq_no=2, got %d", got)
	}

	e.Stop()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

// TestTestRequestEcho exercises spec.md §8 S3: a TestRequest from the peer
// is answered with a Heartbeat echoing the same TestReqID.
func TestTestRequestEcho(t *testing.T) {
	cfg := testConfig()
	e, gw := newTestEngine(t, cfg, ListenerFunc(func(ctx context.Context, msg *message.FixMessage) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	readGatewayFrame(t, gw) // outbound Logon
	writeGatewayFrame(t, gw, logonReply(1, 30, false))
	waitForState(t, e, session.LoggedIn, time.Second)

	tr := message.New(message.MsgTypeTestRequest)
	tr.BeginString = "FIX.4.4"
	tr.SenderCompID = "SRV"
	tr.TargetCompID = "CLIENT"
	tr.MsgSeqNum = 2
	tr.SendingTime = "20260101-00:00:00.000"
	tr.SetString(message.TagTestReqID, "abc")
	writeGatewayFrame(t, gw, tr)

	reply := readGatewayFrame(t, gw)
	if reply.MsgType != message.MsgTypeHeartbeat {
		t.Fatalf("expected Heartbeat reply, got MsgType=%s", reply.MsgType)
	}
	if v, ok := reply.Get(message.TagTestReqID); !ok || string(v) != "abc" {
		t.Errorf("expected echoed TestReqID=abc, got %q (ok=%v)", v, ok)
	}

	e.Stop()
}

// TestGapDetectionAndResend exercises spec.md §8 S4: the peer sends seq 5
// while next_expected is 2; the engine issues a ResendRequest for [2,4]
// and withholds delivery until the gap is filled, then delivers in order.
func TestGapDetectionAndResend(t *testing.T) {
	cfg := testConfig()
	var delivered []uint32
	listener := ListenerFunc(func(ctx context.Context, msg *message.FixMessage) error {
		delivered = append(delivered, msg.MsgSeqNum)
		return nil
	})
	e, gw := newTestEngine(t, cfg, listener)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	readGatewayFrame(t, gw) // outbound Logon
	writeGatewayFrame(t, gw, logonReply(1, 30, false))
	waitForState(t, e, session.LoggedIn, time.Second)

	app := func(seq uint32) *message.FixMessage {
		m := message.New("D")
		m.BeginString = "FIX.4.4"
		m.SenderCompID = "SRV"
		m.TargetCompID = "CLIENT"
		m.MsgSeqNum = seq
		m.SendingTime = "20260101-00:00:00.000"
		return m
	}

	writeGatewayFrame(t, gw, app(5))

	resend := readGatewayFrame(t, gw)
	if resend.MsgType != message.MsgTypeResendRequest {
		t.Fatalf("expected ResendRequest, got MsgType=%s", resend.MsgType)
	}
	beginV, _ := resend.Get(message.TagBeginSeqNo)
	endV, _ := resend.Get(message.TagEndSeqNo)
	if string(beginV) != "2" || string(endV) != "4" {
		t.Errorf("expected BeginSeqNo=2 EndSeqNo=4, got %s/%s", beginV, endV)
	}

	writeGatewayFrame(t, gw, app(2))
	writeGatewayFrame(t, gw, app(3))
	writeGatewayFrame(t, gw, app(4))

	deadline := time.After(time.Second)
	for len(delivered) < 4 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for delivery, got %v", delivered)
		case <-time.After(time.Millisecond):
		}
	}

	want := []uint32{2, 3, 4, 5}
	for i, seq := range want {
		if delivered[i] != seq {
			t.Errorf("delivered[%d] = %d, want %d (full: %v)", i, delivered[i], seq, delivered)
		}
	}

	e.Stop()
}

// TestResetSeqNumOnLogon exercises spec.md §8 S5: a peer Logon carrying
// 141=Y resets counters, crediting the Logon itself at seq 1.
func TestResetSeqNumOnLogon(t *testing.T) {
	cfg := testConfig()
	e, gw := newTestEngine(t, cfg, ListenerFunc(func(ctx context.Context, msg *message.FixMessage) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	readGatewayFrame(t, gw) // outbound Logon
	writeGatewayFrame(t, gw, logonReply(1, 30, true))

	waitForState(t, e, session.LoggedIn, time.Second)
	if got := e.State().NextExpectedSeqNo(); got != 2 {
		t.Errorf("expected next_expected_seq_no=2 after reset+credit, got %d", got)
	}
	if got := e.State().OutboundSeqNo(); got != 1 {
		t.Errorf("expected next outbound seq=1 after the reset, got %d", got)
	}

	e.Stop()
}

// TestCheckHeartbeatSendsOnIdle is a unit test of checkHeartbeat (rather
// than a real-time integration test of heartbeatLoop's ticker), covering
// spec.md §8 S2/S6's logic deterministically: once both last-sent and
// last-received exceed the interval, a Heartbeat and a TestRequest go
// out, and the logon-attempt counter (reset by the successful Logon) is
// left untouched.
func TestCheckHeartbeatSendsOnIdle(t *testing.T) {
	cfg := testConfig()
	cfg.HeartBeatInterval = time.Millisecond
	cfg.MaxMissedHeartBeats = 5
	e, gw := newTestEngine(t, cfg, ListenerFunc(func(ctx context.Context, msg *message.FixMessage) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	readGatewayFrame(t, gw) // outbound Logon
	writeGatewayFrame(t, gw, logonReply(1, 30, false))
	waitForState(t, e, session.LoggedIn, time.Second)

	time.Sleep(5 * time.Millisecond)
	go func() {
		if err := e.checkHeartbeat(cfg.HeartBeatInterval); err != nil {
			t.Errorf("checkHeartbeat: %v", err)
		}
	}()

	hb := readGatewayFrame(t, gw)
	if hb.MsgType != message.MsgTypeHeartbeat {
		t.Fatalf("expected Heartbeat, got MsgType=%s", hb.MsgType)
	}
	tr := readGatewayFrame(t, gw)
	if tr.MsgType != message.MsgTypeTestRequest {
		t.Fatalf("expected TestRequest, got MsgType=%s", tr.MsgType)
	}

	if got := e.State().LogonAttempts(); got != 0 {
		t.Errorf("expected logon attempts to stay at 0 after the successful Logon, got %d", got)
	}

	e.Stop()
}
