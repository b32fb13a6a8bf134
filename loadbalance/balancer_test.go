package loadbalance

import (
	"testing"

	"mesh-rpc/registry"

	"github.com/stretchr/testify/require"
)

var testInstances = []registry.ServiceInstance{
	{Addr: ":8001", Weight: 10},
	{Addr: ":8002", Weight: 5},
	{Addr: ":8003", Weight: 10},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	var results []string
	for i := 0; i < 4; i++ {
		inst, err := b.Pick(testInstances)
		require.NoError(t, err)
		results = append(results, inst.Addr)
	}
	require.Equal(t, []string{":8001", ":8002", ":8003", ":8001"}, results)
}

func TestRoundRobinEmpty(t *testing.T) {
	b := &RoundRobinBalancer{}
	_, err := b.Pick(nil)
	require.ErrorIs(t, err, ErrNoInstances)
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		inst, err := b.Pick(testInstances)
		require.NoError(t, err)
		counts[inst.Addr]++
	}

	// Weight ratio is 10:5:10, so :8001 should be picked about twice as often
	// as :8002.
	ratio := float64(counts[":8001"]) / float64(counts[":8002"])
	require.InDelta(t, 2.0, ratio, 0.5)
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	inst, err := b.Pick([]registry.ServiceInstance{{Addr: ":9000"}})
	require.NoError(t, err)
	require.Equal(t, ":9000", inst.Addr)

	_, err = b.Pick(nil)
	require.ErrorIs(t, err, ErrNoInstances)
}

func TestNew(t *testing.T) {
	b, err := New("")
	require.NoError(t, err)
	require.Equal(t, "round_robin", b.Name())

	b, err = New("weighted_random")
	require.NoError(t, err)
	require.Equal(t, "weighted_random", b.Name())

	_, err = New("consistent")
	require.Error(t, err)
}
