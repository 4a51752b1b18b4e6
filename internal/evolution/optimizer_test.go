package evolution

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/godview/internal/clock"
)

func TestOptimizer_ShouldBroadcast_HonorsInterval(t *testing.T) {
	o := NewOptimizer(Params{GossipIntervalTicks: 4}, OracleProvider{}, clock.NewSeededEntropy(1))
	require.True(t, o.ShouldBroadcast(0, 100))
	require.False(t, o.ShouldBroadcast(1, 100))
	require.True(t, o.ShouldBroadcast(4, 100))
}

func TestOptimizer_ShouldBroadcast_EmergencyOverride(t *testing.T) {
	o := NewOptimizer(Params{GossipIntervalTicks: 1}, OracleProvider{}, clock.NewSeededEntropy(1))
	require.False(t, o.ShouldBroadcast(10, 49.9))
}

func TestOptimizer_FirstEpochAlwaysKeeps(t *testing.T) {
	o := NewOptimizer(DefaultParams(), OracleProvider{}, clock.NewSeededEntropy(1))
	before := o.Active()
	o.EndEpoch(Metrics{AvgPositionError: 5, AvgEnergyRemain: 1})
	require.NotEqual(t, before, o.Active())
}

func TestOptimizer_RevertsOnWorseFitness(t *testing.T) {
	o := NewOptimizer(DefaultParams(), OracleProvider{}, clock.NewSeededEntropy(7))
	o.EndEpoch(Metrics{AvgPositionError: 1, AvgEnergyRemain: 1})

	// The mutation applied at the first boundary is scored by the second
	// epoch; its worse fitness rolls back to the record in force before it.
	o.EndEpoch(Metrics{AvgPositionError: 1000, AvgEnergyRemain: 1})
	require.Equal(t, DefaultParams(), o.previous)
}

func TestOptimizer_DeterministicGivenSameSeed(t *testing.T) {
	o1 := NewOptimizer(DefaultParams(), OracleProvider{}, clock.NewSeededEntropy(42))
	o2 := NewOptimizer(DefaultParams(), OracleProvider{}, clock.NewSeededEntropy(42))

	for i := 0; i < 5; i++ {
		f1 := o1.EndEpoch(Metrics{AvgPositionError: float64(i) + 1, AvgEnergyRemain: 1})
		f2 := o2.EndEpoch(Metrics{AvgPositionError: float64(i) + 1, AvgEnergyRemain: 1})
		require.Equal(t, f1, f2)
	}
	require.Equal(t, o1.Active(), o2.Active())
}
