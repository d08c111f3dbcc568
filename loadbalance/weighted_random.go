package loadbalance

import (
	"fmt"
	"math/rand"

	"fixclient/discovery"
)

// WeightedRandomBalancer selects endpoints probabilistically based on their
// weight. An endpoint with weight 10 gets roughly 2x the dial attempts of
// one with weight 5 — useful for preferring a well-provisioned primary
// over a thinner backup without starving the backup entirely.
//
// Algorithm:
//  1. Sum all weights → totalWeight
//  2. Generate random number r in [0, totalWeight)
//  3. Subtract each endpoint's weight from r until r < 0
//  4. The endpoint that makes r negative is selected
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(endpoints []discovery.GatewayEndpoint) (*discovery.GatewayEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("loadbalance: no endpoints available")
	}

	totalWeight := 0
	for _, v := range endpoints {
		totalWeight += v.Weight
	}
	if totalWeight <= 0 {
		return &endpoints[rand.Intn(len(endpoints))], nil
	}

	r := rand.Intn(totalWeight)
	for i := range endpoints {
		r -= endpoints[i].Weight
		if r < 0 {
			return &endpoints[i], nil
		}
	}

	return nil, fmt.Errorf("loadbalance: unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
