// Package loadbalance picks the instance a client connects to.
//
//   - RoundRobin:      equal-capacity instances
//   - WeightedRandom:  heterogeneous instances, proportional to Weight
//
// Key affinity over a locator hash ring lives in package routing.
package loadbalance

import (
	"errors"

	"mesh-rpc/registry"
)

var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer selects the target instance before a client connects.
type Balancer interface {
	// Pick selects one instance from the available list. It must be
	// goroutine-safe.
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the balancer registered under name: "round_robin" (also the
// empty name) or "weighted_random".
func New(name string) (Balancer, error) {
	switch name {
	case "", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted_random":
		return &WeightedRandomBalancer{}, nil
	}
	return nil, errors.New("loadbalance: unknown balancer " + name)
}
