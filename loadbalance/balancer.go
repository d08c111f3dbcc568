// Package loadbalance chooses which discovered gateway endpoint the
// Engine's reconnect policy (spec.md §4.3) should dial next.
//
// The teacher used these strategies to spread RPC calls across many
// interchangeable server instances; a FIX session instead dials one
// endpoint at a time and only reaches for the next on disconnect, but the
// selection problem — given a live list of candidates, pick one — is the
// same, so the three strategies carry over unchanged in shape:
//   - RoundRobin:      cycle primary/backups evenly, for symmetric pairs
//   - WeightedRandom:  prefer a primary with more capacity over backups
//   - ConsistentHash:  pin a counterparty to the same gateway across
//     reconnects (keyed by TargetCompID), useful when a gateway caches
//     session state keyed by the pair
package loadbalance

import "fixclient/discovery"

// Balancer is the interface for load balancing strategies.
// The reconnect policy calls Pick() before each dial attempt.
type Balancer interface {
	// Pick selects one endpoint from the available list.
	// Called on every reconnect attempt — must be goroutine-safe.
	Pick(endpoints []discovery.GatewayEndpoint) (*discovery.GatewayEndpoint, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
