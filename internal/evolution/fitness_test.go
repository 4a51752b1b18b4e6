package evolution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOracleProvider_BetterAccuracyHigherFitness(t *testing.T) {
	p := OracleProvider{}
	good := Metrics{AvgPositionError: 1, AvgEnergyRemain: 1}
	bad := Metrics{AvgPositionError: 10, AvgEnergyRemain: 1}
	require.Greater(t, p.Fitness(good), p.Fitness(bad))
}

func TestOracleProvider_EnergyPenaltyDampensWhenCritical(t *testing.T) {
	p := OracleProvider{}
	healthy := Metrics{AvgPositionError: 1, AvgEnergyRemain: 1}
	dying := Metrics{AvgPositionError: 1, AvgEnergyRemain: 0.05}
	require.Less(t, p.Fitness(dying), p.Fitness(healthy))
}

func TestBlindProvider_LowerNISHigherFitness(t *testing.T) {
	p := NewBlindProvider()
	good := Metrics{AvgNIS: 1, AvgEnergyRemain: 1}
	bad := Metrics{AvgNIS: 20, AvgEnergyRemain: 1}
	require.Greater(t, p.Fitness(good), p.Fitness(bad))
}

func TestBlindProvider_NeverReadsPositionError(t *testing.T) {
	p := NewBlindProvider()
	a := Metrics{AvgNIS: 1, AvgPositionError: 0, AvgEnergyRemain: 1}
	b := Metrics{AvgNIS: 1, AvgPositionError: 1000, AvgEnergyRemain: 1}
	require.Equal(t, p.Fitness(a), p.Fitness(b))
}

func TestMetrics_EnergyPenaltyBounds(t *testing.T) {
	require.Equal(t, 0.0, Metrics{AvgEnergyRemain: 1}.EnergyPenalty())
	require.Equal(t, 1.0, Metrics{AvgEnergyRemain: 0}.EnergyPenalty())
	require.InDelta(t, 0.5, Metrics{AvgEnergyRemain: 0.5}.EnergyPenalty(), 1e-9)
}
