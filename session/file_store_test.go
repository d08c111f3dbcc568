package session

import "testing"

func TestFileStoreMissingFileIsNotError(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, ok, err := store.Load("NOBODY")
	if err != nil {
		t.Fatalf("Load on missing file returned error: %v", err)
	}
	if ok {
		t.Error("Load on missing file reported ok=true")
	}
}

func TestFileStoreSaveThenLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())
	rec := Checkpoint{SenderCompID: "CLIENT", TargetCompID: "SRV", OutboundSeqNo: 7, NextExpectedSeqNo: 9}

	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := store.Load("CLIENT")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load reported ok=false after Save")
	}
	if got != rec {
		t.Errorf("Load() = %+v, want %+v", got, rec)
	}
}

func TestFileStoreSaveOverwritesPreviousCheckpoint(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Save(Checkpoint{SenderCompID: "CLIENT", OutboundSeqNo: 1, NextExpectedSeqNo: 1}); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := store.Save(Checkpoint{SenderCompID: "CLIENT", OutboundSeqNo: 42, NextExpectedSeqNo: 43}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, ok, err := store.Load("CLIENT")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.OutboundSeqNo != 42 || got.NextExpectedSeqNo != 43 {
		t.Errorf("Load() = %+v, want OutboundSeqNo=42 NextExpectedSeqNo=43", got)
	}
}

func TestFileStoreKeysBySenderCompID(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Save(Checkpoint{SenderCompID: "A", OutboundSeqNo: 1, NextExpectedSeqNo: 1}); err != nil {
		t.Fatalf("Save A: %v", err)
	}
	if err := store.Save(Checkpoint{SenderCompID: "B", OutboundSeqNo: 5, NextExpectedSeqNo: 5}); err != nil {
		t.Fatalf("Save B: %v", err)
	}

	a, _, _ := store.Load("A")
	b, _, _ := store.Load("B")
	if a.OutboundSeqNo == b.OutboundSeqNo {
		t.Errorf("expected distinct checkpoints per SenderCompID, both read OutboundSeqNo=%d", a.OutboundSeqNo)
	}
}
