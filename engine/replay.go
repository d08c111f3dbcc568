package engine

import (
	"sync"

	"fixclient/message"
)

// replayRecord is one previously-sent outbound message retained for
// answering a peer ResendRequest (spec.md §4.3 "Outbound replay").
type replayRecord struct {
	seq     uint32
	isAdmin bool
	msg     *message.FixMessage // full message so a replay can re-stamp PossDupFlag/OrigSendingTime
}

// replayStore retains the tail of outbound messages needed to answer a
// ResendRequest. spec.md §9 leaves the retention window unspecified
// ("Replay store bounds are unspecified in the source; implementers
// should make this a configurable window and document the default") —
// this implementation bounds it to the last `window` records, trimming
// the oldest once the window is exceeded. Default window: see
// defaultReplayWindow in engine.go.
type replayStore struct {
	mu      sync.Mutex
	window  int
	records []replayRecord
}

func newReplayStore(window int) *replayStore {
	if window <= 0 {
		window = defaultReplayWindow
	}
	return &replayStore{window: window}
}

// record appends a sent message to the store, trimming the oldest entry
// once the window is exceeded.
func (r *replayStore) record(seq uint32, isAdmin bool, msg *message.FixMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, replayRecord{seq: seq, isAdmin: isAdmin, msg: msg})
	if len(r.records) > r.window {
		r.records = r.records[len(r.records)-r.window:]
	}
}

// reset clears the store — called on a sequence reset (ResetSeqNumFlag on
// Logon), since replaying pre-reset messages against post-reset seq-nums
// would be meaningless.
func (r *replayStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// rangeFor returns the stored records with seq in [begin, end] inclusive,
// in ascending seq order. A record missing from the store (evicted by the
// window, or never sent — e.g. a gap in the store itself) is simply
// absent from the result; the caller fills any hole it cares about with a
// gap-fill SequenceReset.
func (r *replayStore) rangeFor(begin, end uint32) []replayRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []replayRecord
	for _, rec := range r.records {
		if rec.seq >= begin && rec.seq <= end {
			out = append(out, rec)
		}
	}
	return out
}
