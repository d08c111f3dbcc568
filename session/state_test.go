package session

import "testing"

func TestNewStartsAtOne(t *testing.T) {
	s := New("CLIENT", "SRV")
	if got := s.OutboundSeqNo(); got != 1 {
		t.Errorf("OutboundSeqNo() = %d, want 1", got)
	}
	if got := s.NextExpectedSeqNo(); got != 1 {
		t.Errorf("NextExpectedSeqNo() = %d, want 1", got)
	}
}

func TestWithOutboundLockAdvancesOnSuccess(t *testing.T) {
	s := New("CLIENT", "SRV")

	var seen uint32
	err := s.WithOutboundLock(func(nextSeq uint32) error {
		seen = nextSeq
		return nil
	})
	if err != nil {
		t.Fatalf("WithOutboundLock: %v", err)
	}
	if seen != 1 {
		t.Errorf("fn saw nextSeq = %d, want 1", seen)
	}
	if got := s.OutboundSeqNo(); got != 2 {
		t.Errorf("OutboundSeqNo() after one send = %d, want 2", got)
	}
}

func TestWithOutboundLockRollsBackOnError(t *testing.T) {
	s := New("CLIENT", "SRV")

	writeErr := errTest("write failed")
	err := s.WithOutboundLock(func(nextSeq uint32) error {
		return writeErr
	})
	if err != writeErr {
		t.Fatalf("expected write error to propagate, got %v", err)
	}
	if got := s.OutboundSeqNo(); got != 1 {
		t.Errorf("OutboundSeqNo() after failed send = %d, want unchanged 1", got)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestValidateInboundClassifiesOutcome(t *testing.T) {
	s := New("CLIENT", "SRV")

	if r := s.ValidateInbound(1); r.Outcome != Expected {
		t.Errorf("seq 1 against fresh state: got %v, want Expected", r.Outcome)
	}
	if r := s.ValidateInbound(5); r.Outcome != Gap {
		t.Errorf("seq 5 against fresh state: got %v, want Gap", r.Outcome)
	}

	s.AdvanceInbound(1)
	if r := s.ValidateInbound(1); r.Outcome != Duplicate {
		t.Errorf("seq 1 after already advancing past it: got %v, want Duplicate", r.Outcome)
	}
}

func TestAdvanceInboundNeverGoesBackwards(t *testing.T) {
	s := New("CLIENT", "SRV")
	s.AdvanceInbound(5)
	if got := s.NextExpectedSeqNo(); got != 6 {
		t.Fatalf("NextExpectedSeqNo() = %d, want 6", got)
	}
	s.AdvanceInbound(2)
	if got := s.NextExpectedSeqNo(); got != 6 {
		t.Errorf("AdvanceInbound with a lower seq moved the counter backwards: got %d, want 6", got)
	}
}

func TestSetNextExpectedForcesValue(t *testing.T) {
	s := New("CLIENT", "SRV")
	s.SetNextExpected(100)
	if got := s.NextExpectedSeqNo(); got != 100 {
		t.Errorf("NextExpectedSeqNo() = %d, want 100", got)
	}
}

func TestResetZeroesCounters(t *testing.T) {
	s := New("CLIENT", "SRV")
	s.AdvanceInbound(10)
	_ = s.WithOutboundLock(func(nextSeq uint32) error { return nil })

	s.Reset()
	if got := s.OutboundSeqNo(); got != 1 {
		t.Errorf("OutboundSeqNo() after Reset = %d, want 1", got)
	}
	if got := s.NextExpectedSeqNo(); got != 1 {
		t.Errorf("NextExpectedSeqNo() after Reset = %d, want 1", got)
	}
}

func TestMissedHeartbeatsCounter(t *testing.T) {
	s := New("CLIENT", "SRV")
	if got := s.IncrMissedHeartbeats(); got != 1 {
		t.Errorf("first IncrMissedHeartbeats() = %d, want 1", got)
	}
	if got := s.IncrMissedHeartbeats(); got != 2 {
		t.Errorf("second IncrMissedHeartbeats() = %d, want 2", got)
	}
	s.MarkReceived()
	if got := s.IncrMissedHeartbeats(); got != 1 {
		t.Errorf("IncrMissedHeartbeats() after MarkReceived() = %d, want 1 (reset)", got)
	}
}

func TestLogonAttemptsResetOnSuccess(t *testing.T) {
	s := New("CLIENT", "SRV")
	s.RecordLogonAttempt()
	s.RecordLogonAttempt()
	if got := s.LogonAttempts(); got != 2 {
		t.Fatalf("LogonAttempts() = %d, want 2", got)
	}
	s.ResetLogonAttempts()
	if got := s.LogonAttempts(); got != 0 {
		t.Errorf("LogonAttempts() after reset = %d, want 0", got)
	}
}

func TestSnapshotAndFromCheckpointRoundTrip(t *testing.T) {
	s := New("CLIENT", "SRV")
	s.AdvanceInbound(4)
	_ = s.WithOutboundLock(func(nextSeq uint32) error { return nil })
	_ = s.WithOutboundLock(func(nextSeq uint32) error { return nil })

	snap := s.Snapshot()
	restored := FromCheckpoint(snap)

	if restored.OutboundSeqNo() != s.OutboundSeqNo() {
		t.Errorf("restored OutboundSeqNo() = %d, want %d", restored.OutboundSeqNo(), s.OutboundSeqNo())
	}
	if restored.NextExpectedSeqNo() != s.NextExpectedSeqNo() {
		t.Errorf("restored NextExpectedSeqNo() = %d, want %d", restored.NextExpectedSeqNo(), s.NextExpectedSeqNo())
	}
	if restored.SenderCompID() != "CLIENT" || restored.TargetCompID() != "SRV" {
		t.Errorf("restored identity = %s/%s, want CLIENT/SRV", restored.SenderCompID(), restored.TargetCompID())
	}
}
