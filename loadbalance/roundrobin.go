package loadbalance

import (
	"fmt"
	"sync/atomic"

	"fixclient/discovery"
)

// RoundRobinBalancer distributes dial attempts evenly across all endpoints
// in order. Uses an atomic counter for lock-free, goroutine-safe operation.
//
// Best for: symmetric primary/backup pairs with similar capacity.
type RoundRobinBalancer struct {
	counter int64 // Atomic counter, incremented on each Pick()
}

// Pick selects the next endpoint in round-robin order.
func (b *RoundRobinBalancer) Pick(endpoints []discovery.GatewayEndpoint) (*discovery.GatewayEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("loadbalance: no endpoints available")
	}
	index := (atomic.AddInt64(&b.counter, 1) - 1) % int64(len(endpoints))
	return &endpoints[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
