package engine

import (
	"testing"

	"fixclient/message"
)

func TestReplayStoreWindowEviction(t *testing.T) {
	r := newReplayStore(3)
	for seq := uint32(1); seq <= 5; seq++ {
		r.record(seq, false, message.New("D"))
	}

	got := r.rangeFor(1, 5)
	if len(got) != 3 {
		t.Fatalf("expected window of 3 records, got %d", len(got))
	}
	for i, want := range []uint32{3, 4, 5} {
		if got[i].seq != want {
			t.Errorf("records[%d].seq = %d, want %d", i, got[i].seq, want)
		}
	}
}

func TestReplayStoreDefaultWindow(t *testing.T) {
	r := newReplayStore(0)
	if r.window != defaultReplayWindow {
		t.Errorf("expected default window %d, got %d", defaultReplayWindow, r.window)
	}
}

func TestReplayStoreReset(t *testing.T) {
	r := newReplayStore(10)
	r.record(1, true, message.New(message.MsgTypeLogon))
	r.reset()
	if got := r.rangeFor(0, 100); len(got) != 0 {
		t.Errorf("expected empty store after reset, got %d records", len(got))
	}
}

func TestReplayStoreRangeFor(t *testing.T) {
	r := newReplayStore(10)
	r.record(1, true, message.New(message.MsgTypeLogon))
	r.record(2, false, message.New("D"))
	r.record(3, false, message.New("D"))
	r.record(4, true, message.New(message.MsgTypeHeartbeat))
	r.record(5, false, message.New("D"))

	got := r.rangeFor(2, 4)
	if len(got) != 3 {
		t.Fatalf("expected 3 records in [2,4], got %d", len(got))
	}
	for i, want := range []uint32{2, 3, 4} {
		if got[i].seq != want {
			t.Errorf("records[%d].seq = %d, want %d", i, got[i].seq, want)
		}
	}

	if got := r.rangeFor(10, 20); len(got) != 0 {
		t.Errorf("expected no records outside stored range, got %d", len(got))
	}
}
