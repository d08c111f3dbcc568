// Package metrics exposes Prometheus counters and gauges for the session
// engine, grounded on ampio-server's internal/metrics package: package-level
// promauto-registered collectors, one file, no registry plumbing beyond
// the default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InboundFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_inbound_frames_total",
		Help: "Total FIX frames successfully decoded from the wire.",
	})
	OutboundFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_outbound_frames_total",
		Help: "Total FIX frames written to the wire.",
	})
	CorruptFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_corrupt_frames_total",
		Help: "Total frames discarded by the decoder due to framing/checksum errors.",
	})
	SequenceGaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_sequence_gaps_total",
		Help: "Total inbound sequence gaps detected, triggering a ResendRequest.",
	})
	SequenceDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_sequence_duplicates_total",
		Help: "Total inbound duplicates without PossDupFlag, each treated as a protocol violation.",
	})
	ResendRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_resend_requests_sent_total",
		Help: "Total ResendRequest messages sent to fill a detected gap.",
	})
	ResendRequestsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_resend_requests_served_total",
		Help: "Total peer ResendRequests answered by replaying the outbound store.",
	})
	HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_heartbeats_sent_total",
		Help: "Total Heartbeat messages sent on the idle timer.",
	})
	MissedHeartbeats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_missed_heartbeats_total",
		Help: "Total consecutive-interval heartbeat misses recorded.",
	})
	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_reconnect_attempts_total",
		Help: "Total reconnect attempts made by the supervisor task.",
	})
	ListenerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_listener_failures_total",
		Help: "Total application messages the listener failed (or timed out) to accept.",
	})
	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fix_session_persistence_failures_total",
		Help: "Total checkpoint write failures; each one halts the session.",
	})
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fix_session_connection_state",
		Help: "Current connection state as an integer per session.ConnectionState.",
	})
	OutboundSeqNo = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fix_session_outbound_seq_no",
		Help: "Current next-to-assign outbound sequence number.",
	})
	NextExpectedSeqNo = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fix_session_next_expected_seq_no",
		Help: "Current next-expected inbound sequence number.",
	})
)
