package timeengine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{
		StateDim:         6,
		LagDepth:         4,
		ProcessNoiseStd:  0.1,
		InitialVariance:  10.0,
		SelfHealVariance: 1e6,
	}
}

func TestPredict_ZeroVelocityIsIdentityOnPosition(t *testing.T) {
	f := New(smallConfig(), []float64{1, 2, 3, 0, 0, 0}, 0)

	before := f.CurrentCovarianceBlock()
	f.Predict(1.0, 1.0)
	block := f.CurrentBlock()

	require.InDelta(t, 1, block[0], 1e-9)
	require.InDelta(t, 2, block[1], 1e-9)
	require.InDelta(t, 3, block[2], 1e-9)

	after := f.CurrentCovarianceBlock()
	for i := 0; i < 3; i++ {
		require.Greater(t, after[i][i], before[i][i])
	}
}

func TestPredict_ConstantVelocityAdvancesPosition(t *testing.T) {
	f := New(smallConfig(), []float64{0, 0, 0, 10, 0, 0}, 0)
	f.Predict(2.0, 2.0)
	block := f.CurrentBlock()
	require.InDelta(t, 20, block[0], 1e-9)
}

func TestPredict_CovarianceStaysSymmetric(t *testing.T) {
	f := New(smallConfig(), []float64{0, 0, 0, 1, 1, 1}, 0)
	for i := 0; i < 5; i++ {
		f.Predict(0.5, float64(i+1)*0.5)
	}

	n := f.cfg.StateDim * f.blocks
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			require.InDelta(t, f.cov.At(i, j), f.cov.At(j, i), 1e-9)
		}
	}
}

func identityR() [3][3]float64 {
	return [3][3]float64{{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}}
}

func TestUpdateOOSM_AcceptsMeasurementAtCurrentSlot(t *testing.T) {
	f := New(smallConfig(), []float64{0, 0, 0, 0, 0, 0}, 0)
	err := f.UpdateOOSM([3]float64{1, 1, 1}, identityR(), 0)
	require.NoError(t, err)

	block := f.CurrentBlock()
	require.Greater(t, block[0], 0.0)
	require.Less(t, block[0], 1.0)
}

func TestUpdateOOSM_LagExactlyNAccepted(t *testing.T) {
	cfg := smallConfig() // LagDepth 4
	f := New(cfg, []float64{0, 0, 0, 0, 0, 0}, 0)
	for tick := 1; tick <= 4; tick++ {
		f.Predict(1.0, float64(tick))
	}
	// oldest retained slot is timestamp 0 (lag exactly N=4 ticks).
	err := f.UpdateOOSM([3]float64{5, 5, 5}, identityR(), 0)
	require.NoError(t, err)
}

func TestUpdateOOSM_LagNPlus1Dropped(t *testing.T) {
	cfg := smallConfig()
	f := New(cfg, []float64{0, 0, 0, 0, 0, 0}, 0)
	for tick := 1; tick <= 5; tick++ {
		f.Predict(1.0, float64(tick))
	}
	before := f.CurrentBlock()
	// ring is [5, 4, 3, 2, 1]; t=0 is lag N+1=5 ticks behind the present.
	err := f.UpdateOOSM([3]float64{5, 5, 5}, identityR(), 0)
	require.ErrorIs(t, err, ErrStaleMeasurement)
	require.Equal(t, before, f.CurrentBlock())
}

func TestUpdateOOSM_NearestSlotTieFavorsMoreRecent(t *testing.T) {
	cfg := smallConfig()
	f := New(cfg, []float64{0, 0, 0, 0, 0, 0}, 0)
	f.Predict(1.0, 1.0)
	f.Predict(1.0, 2.0)
	// timestamps ring is now [2, 1, 0, 0, 0]; tMeas=1.5 is equidistant
	// from slot 0 (t=2) and slot 1 (t=1).
	slot := f.nearestSlot(1.5)
	require.Equal(t, 0, slot)
}

func TestAverageNIS_AccumulatesAcrossUpdates(t *testing.T) {
	f := New(smallConfig(), []float64{0, 0, 0, 0, 0, 0}, 0)
	require.Equal(t, 0.0, f.AverageNIS())

	require.NoError(t, f.UpdateOOSM([3]float64{1, 0, 0}, identityR(), 0))
	require.NoError(t, f.UpdateOOSM([3]float64{2, 0, 0}, identityR(), 0))

	require.Greater(t, f.AverageNIS(), 0.0)
}

func TestUpdateOOSM_DegradedCovarianceSelfHeals(t *testing.T) {
	f := New(smallConfig(), []float64{0, 0, 0, 0, 0, 0}, 0)

	n := f.cfg.StateDim * f.blocks
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			f.cov.Set(i, j, 0)
		}
	}

	var zeroR [3][3]float64
	err := f.UpdateOOSM([3]float64{1, 1, 1}, zeroR, 0)
	require.ErrorIs(t, err, ErrCovarianceDegraded)

	for i := 0; i < n; i++ {
		require.InDelta(t, f.cfg.SelfHealVariance, f.cov.At(i, i), 1e-6)
	}
}

func TestTransition_ConstantAccelerationAppliesAboveNineDims(t *testing.T) {
	cfg := Config{StateDim: 9, LagDepth: 2, ProcessNoiseStd: 0.1, InitialVariance: 1, SelfHealVariance: 1e6}
	f := New(cfg, []float64{0, 0, 0, 0, 0, 0, 1, 0, 0}, 0)
	f.Predict(2.0, 2.0)
	block := f.CurrentBlock()
	// x-accel 1 m/s^2 for 2s: velocity += 2, position += 0.5*1*4 = 2
	require.InDelta(t, 2.0, block[0], 1e-9)
	require.InDelta(t, 2.0, block[3], 1e-9)
}

func TestNearestSlot_BeyondWindowReturnsNegativeOne(t *testing.T) {
	cfg := smallConfig()
	f := New(cfg, []float64{0, 0, 0, 0, 0, 0}, 10)
	for i := 1; i <= 4; i++ {
		f.Predict(1.0, 10+float64(i))
	}
	require.Equal(t, -1, f.nearestSlot(5))
}

func TestNew_InitialCovarianceIsDiagonal(t *testing.T) {
	f := New(smallConfig(), make([]float64, 6), 0)
	n := f.cfg.StateDim * f.blocks
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				require.Equal(t, f.cfg.InitialVariance, f.cov.At(i, j))
			} else {
				require.Equal(t, 0.0, f.cov.At(i, j))
			}
		}
	}
}

func TestPredict_PreservesApproximatePSD(t *testing.T) {
	f := New(smallConfig(), []float64{0, 0, 0, 1, 2, 3}, 0)
	for i := 0; i < 10; i++ {
		f.Predict(0.3, float64(i+1)*0.3)
	}
	block := f.CurrentCovarianceBlock()
	for i := range block {
		require.GreaterOrEqual(t, block[i][i], -1e-9)
	}
	require.False(t, math.IsNaN(block[0][0]))
}
