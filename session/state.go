// Package session implements Session State (spec.md §3, §4.2): sequence
// number bookkeeping, connection-state tracking, and the durable
// checkpoint that survives restarts.
package session

import (
	"sync"
	"time"
)

// ConnectionState is the five-valued tag from spec.md §3. It is mutated
// only by the Engine, through State.SetConnectionState.
type ConnectionState int

const (
	Unknown ConnectionState = iota
	Connected
	LoggedIn
	LoggedOut
	Disconnected
)

func (c ConnectionState) String() string {
	switch c {
	case Connected:
		return "Connected"
	case LoggedIn:
		return "LoggedIn"
	case LoggedOut:
		return "LoggedOut"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Outcome classifies an inbound sequence number against what the session
// expects next (spec.md §4.2 validate_inbound).
type Outcome int

const (
	Expected Outcome = iota
	Gap
	Duplicate
)

// ValidateResult is the result of validating one inbound MsgSeqNum.
type ValidateResult struct {
	Outcome  Outcome
	Expected uint32 // next_expected_seq_no at validation time
	Received uint32 // the seq-num that was validated
}

// State holds everything spec.md §3 calls "Session State". Per spec.md §5,
// when an implementation uses native threads instead of cooperative
// scheduling, "the session state must be guarded by a single mutex
// covering sequence numbers, connection state, and the outbound writer; no
// finer-grained locking is permitted" — so this single mutex also brackets
// the Engine's socket write via WithOutboundLock.
type State struct {
	mu sync.Mutex

	senderCompID string
	targetCompID string

	outboundSeqNo     uint32 // last number stamped; the next outbound is this + 1
	nextExpectedSeqNo uint32

	connState ConnectionState

	lastSentAt     time.Time
	lastReceivedAt time.Time
	missedHBs      int

	logonAttempts      int
	lastLogonAttemptAt time.Time
}

// New creates Session State for the given identity pair with counters
// zeroed such that the next outbound is 1 and the next expected inbound is
// 1 — the same initial state as Reset() produces.
func New(senderCompID, targetCompID string) *State {
	s := &State{senderCompID: senderCompID, targetCompID: targetCompID}
	s.Reset()
	return s
}

// FromCheckpoint restores Session State from a persisted checkpoint
// (spec.md "Lifecycle": "created ... by reading the on-disk checkpoint
// (when ResetSeqNum = N)").
func FromCheckpoint(rec Checkpoint) *State {
	return &State{
		senderCompID:      rec.SenderCompID,
		targetCompID:      rec.TargetCompID,
		outboundSeqNo:     rec.OutboundSeqNo,
		nextExpectedSeqNo: rec.NextExpectedSeqNo,
	}
}

// SenderCompID and TargetCompID are immutable for the session's lifetime.
func (s *State) SenderCompID() string { return s.senderCompID }
func (s *State) TargetCompID() string { return s.targetCompID }

// Reset sets both counters such that the next outbound is 1 and the next
// expected inbound is 1 (spec.md §4.2 reset()).
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outboundSeqNo = 0
	s.nextExpectedSeqNo = 1
}

// WithOutboundLock runs fn with the session lock held and nextSeq set to
// the sequence number that would be assigned to the next outbound message.
// fn is responsible for stamping, encoding, and writing the message to the
// socket — the lock is held across all of it, satisfying spec.md §5's "the
// sequence-number stamp and the socket write happen atomically". Only on
// fn's success is outbound_seq_no advanced and last_sent_at updated; on
// error the counter is left untouched (spec.md §5 cancellation safety: "it
// did not [complete], and the seq is rolled back before checkpointing" —
// here, never advanced in the first place).
func (s *State) WithOutboundLock(fn func(nextSeq uint32) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextSeq := s.outboundSeqNo + 1
	if err := fn(nextSeq); err != nil {
		return err
	}
	s.outboundSeqNo = nextSeq
	s.lastSentAt = time.Now()
	return nil
}

// WithWriteLock runs fn with the session lock held, without touching the
// outbound sequence counter. Used for writes that don't assign a new
// seq-num — replaying a historical message, or emitting a SequenceReset
// gap-fill — so that write never interleaves on the wire with a
// concurrent WithOutboundLock write from a live send.
func (s *State) WithWriteLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// OutboundSeqNo returns the next sequence number that will be assigned.
func (s *State) OutboundSeqNo() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outboundSeqNo + 1
}

// NextExpectedSeqNo returns the sequence number required on the next
// inbound message.
func (s *State) NextExpectedSeqNo() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextExpectedSeqNo
}

// ValidateInbound classifies seq against next_expected_seq_no without
// advancing it (spec.md §4.2 validate_inbound).
func (s *State) ValidateInbound(seq uint32) ValidateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case seq == s.nextExpectedSeqNo:
		return ValidateResult{Outcome: Expected, Expected: s.nextExpectedSeqNo, Received: seq}
	case seq > s.nextExpectedSeqNo:
		return ValidateResult{Outcome: Gap, Expected: s.nextExpectedSeqNo, Received: seq}
	default:
		return ValidateResult{Outcome: Duplicate, Expected: s.nextExpectedSeqNo, Received: seq}
	}
}

// AdvanceInbound raises next_expected_seq_no to seq + 1 (spec.md §4.2
// advance_inbound); a seq + 1 at or below the current value leaves it
// unchanged. The caller must only do so after delivering the
// message at seq to the listener (spec.md §4.4).
func (s *State) AdvanceInbound(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := seq + 1
	if next > s.nextExpectedSeqNo {
		s.nextExpectedSeqNo = next
	}
	s.lastReceivedAt = time.Now()
}

// SetNextExpected forcibly sets next_expected_seq_no, used by
// SequenceReset (spec.md §4.3 "recv SequenceReset (35=4) ... set
// next-expected per tag 36").
func (s *State) SetNextExpected(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExpectedSeqNo = seq
}

// MarkReceived updates last_received_at and resets the missed-heartbeat
// counter — called on any inbound traffic, admin or application.
func (s *State) MarkReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReceivedAt = time.Now()
	s.missedHBs = 0
}

// LastReceivedAt returns the wall-clock time of the last inbound message.
func (s *State) LastReceivedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReceivedAt
}

// LastSentAt returns the wall-clock time of the last outbound message,
// used by the heartbeat task to decide whether the idle timer has
// elapsed since the last send (spec.md §4.3 "heartbeat timer fires").
func (s *State) LastSentAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSentAt
}

// IncrMissedHeartbeats increments and returns the consecutive-interval
// miss counter (spec.md §3 missed_heartbeats).
func (s *State) IncrMissedHeartbeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missedHBs++
	return s.missedHBs
}

// ResetMissedHeartbeats zeroes the miss counter.
func (s *State) ResetMissedHeartbeats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missedHBs = 0
}

// ConnectionState returns the current five-valued connection tag.
func (s *State) ConnectionState() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// SetConnectionState mutates the connection tag. Per spec.md §3, "it is
// mutated only by the Engine" — this method doesn't enforce that, the
// convention does.
func (s *State) SetConnectionState(cs ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connState = cs
}

// RecordLogonAttempt increments logon_attempts and stamps
// last_logon_attempt_at, used by the reconnect throttle (spec.md §4.3
// Reconnect policy).
func (s *State) RecordLogonAttempt() (attempts int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logonAttempts++
	s.lastLogonAttemptAt = time.Now()
	return s.logonAttempts, s.lastLogonAttemptAt
}

// ResetLogonAttempts zeroes the attempt counter — called on a successful
// Logon (spec.md §4.3: "A successful Logon resets the attempt counter").
func (s *State) ResetLogonAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logonAttempts = 0
}

// LogonAttempts returns the current attempt count.
func (s *State) LogonAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logonAttempts
}

// Checkpoint is the persisted record: "{sender_comp_id, outbound_seq_no,
// next_expected_seq_no} serialized as a small record on disk" (spec.md
// §3). TargetCompID is carried too so an EtcdCheckpointStore (domain-stack
// addition) can key entries unambiguously across multiple sessions sharing
// an etcd cluster.
type Checkpoint struct {
	SenderCompID      string `json:"senderCompId"`
	TargetCompID      string `json:"targetCompId,omitempty"`
	OutboundSeqNo     uint32 `json:"outboundSeqNo"`
	NextExpectedSeqNo uint32 `json:"nextExpectedSeqNo"`
}

// Snapshot returns the current checkpoint record for persistence.
func (s *State) Snapshot() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Checkpoint{
		SenderCompID:      s.senderCompID,
		TargetCompID:      s.targetCompID,
		OutboundSeqNo:     s.outboundSeqNo,
		NextExpectedSeqNo: s.nextExpectedSeqNo,
	}
}

// Store persists and restores Checkpoint records, keyed by SenderCompID
// (spec.md §3: "Persisted checkpoint ... keyed by sender-comp-id").
type Store interface {
	Load(senderCompID string) (Checkpoint, bool, error)
	Save(rec Checkpoint) error
}
