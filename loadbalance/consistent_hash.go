package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"

	"fixclient/discovery"
)

// ConsistentHashBalancer maps a key to an endpoint using a hash ring. The
// same key always maps to the same endpoint (until the ring changes),
// giving gateway affinity — useful when a counterparty's gateway caches
// per-session state keyed by SenderCompID/TargetCompID and reconnects
// should land back on the same box rather than round-robin away from it.
//
// Virtual nodes: each real endpoint is mapped to N virtual nodes on the
// ring. Without virtual nodes, a handful of endpoints can cluster together
// on the ring, causing uneven affinity. 100 virtual nodes per endpoint
// ensures statistical uniformity.
type ConsistentHashBalancer struct {
	replicas int                                 // Virtual nodes per real endpoint
	ring     []uint32                            // Sorted hash values on the ring
	nodes    map[uint32]*discovery.GatewayEndpoint // Hash value → endpoint mapping
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per
// endpoint.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		ring:     []uint32{},
		nodes:    make(map[uint32]*discovery.GatewayEndpoint),
	}
}

// Add places an endpoint onto the hash ring with N virtual nodes. Each
// virtual node is hashed from "{addr}#{i}" to spread evenly across the
// ring.
func (b *ConsistentHashBalancer) Add(ep *discovery.GatewayEndpoint) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", ep.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = ep
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// PickForKey finds the endpoint responsible for the given affinity key
// (typically TargetCompID). It hashes the key, then binary-searches for
// the first node >= hash on the ring, wrapping around to the first node if
// the hash exceeds all of them.
//
// This doesn't implement Balancer — consistent hashing is key-based, not
// list-based. The Engine's connectOnce calls only Balancer.Pick, so it
// never selects an endpoint through PickForKey.
func (b *ConsistentHashBalancer) PickForKey(key string) (*discovery.GatewayEndpoint, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("loadbalance: hash ring is empty")
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
