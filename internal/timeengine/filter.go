// Package timeengine implements the augmented-state filter: a
// Kalman-style estimator carrying the current state plus a
// bounded ring of past blocks and their cross-covariances, so a
// late-arriving measurement can be applied at its historical slot and
// propagated forward instead of rewinding the whole simulation.
package timeengine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/godview/internal/monitoring"
)

// Filter is one entity's augmented-state estimator.
type Filter struct {
	cfg    Config
	blocks int // LagDepth + 1

	state *mat.VecDense // dim * blocks
	cov   *mat.Dense    // square, dim*blocks

	// timestamps is a ring, index 0 is the most recent ("now") block,
	// index blocks-1 the oldest retained.
	timestamps []float64

	nisSum   float64
	nisCount int
}

// New constructs a Filter seeded with initState in its current block
// (the rest of the history starts identical to the current block,
// with timestamps all equal to tNow) and a diagonal covariance of
// cfg.InitialVariance.
func New(cfg Config, initState []float64, tNow float64) *Filter {
	blocks := cfg.LagDepth + 1
	n := cfg.StateDim * blocks

	state := mat.NewVecDense(n, nil)
	for bi := 0; bi < blocks; bi++ {
		for i := 0; i < cfg.StateDim && i < len(initState); i++ {
			state.SetVec(bi*cfg.StateDim+i, initState[i])
		}
	}

	cov := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		cov.Set(i, i, cfg.InitialVariance)
	}

	ts := make([]float64, blocks)
	for i := range ts {
		ts[i] = tNow
	}

	return &Filter{cfg: cfg, blocks: blocks, state: state, cov: cov, timestamps: ts}
}

// Predict augments the filter by dt: every block shifts one slot
// toward the past (both state and covariance row/column blocks;
// cross-correlations with the current block move too), the new
// current block advances through the transition model, process noise
// is added only to the new current block, and tNow is prepended to
// the timestamp ring.
func (f *Filter) Predict(dt, tNow float64) {
	d := f.cfg.StateDim
	n := f.blocks
	N := n * d

	F := f.transition(dt)
	Q := f.processNoise(dt)

	newState := mat.NewVecDense(N, nil)
	newCov := mat.NewDense(N, N, nil)

	for bi := n - 1; bi >= 1; bi-- {
		setVecBlockAt(newState, bi*d, vecBlockAt(f.state, (bi-1)*d, d))
		for bj := n - 1; bj >= 1; bj-- {
			setBlockAt(newCov, bi*d, bj*d, blockAt(f.cov, (bi-1)*d, (bj-1)*d, d))
		}
	}

	var newCurrent mat.VecDense
	newCurrent.MulVec(F, vecBlockAt(f.state, 0, d))
	setVecBlockAt(newState, 0, &newCurrent)

	for bj := 1; bj < n; bj++ {
		old := blockAt(f.cov, 0, (bj-1)*d, d)

		var transformed mat.Dense
		transformed.Mul(F, old)
		setBlockAt(newCov, 0, bj*d, &transformed)

		var transposed mat.Dense
		transposed.CloneFrom(transformed.T())
		setBlockAt(newCov, bj*d, 0, &transposed)
	}

	var fp mat.Dense
	fp.Mul(F, blockAt(f.cov, 0, 0, d))
	var fpft mat.Dense
	fpft.Mul(&fp, F.T())
	fpft.Add(&fpft, Q)
	setBlockAt(newCov, 0, 0, &fpft)

	f.state = newState
	f.cov = newCov

	copy(f.timestamps[1:], f.timestamps[:n-1])
	f.timestamps[0] = tNow
}

// UpdateOOSM applies a position measurement zPos with covariance R
// captured at tMeas. It locates the history slot nearest tMeas,
// discarding the measurement if it precedes the retained window,
// builds a sparse measurement matrix projecting onto that slot's
// position rows, and applies a Cholesky-factored Kalman update in
// Joseph form. A degraded innovation covariance triggers a self-heal:
// the covariance resets to a large diagonal and the state is left
// unchanged.
func (f *Filter) UpdateOOSM(zPos [3]float64, R [3][3]float64, tMeas float64) error {
	d := f.cfg.StateDim
	n := f.blocks
	N := n * d

	slot := f.nearestSlot(tMeas)
	if slot < 0 {
		return ErrStaleMeasurement
	}

	H := mat.NewDense(3, N, nil)
	for r := 0; r < 3; r++ {
		H.Set(r, slot*d+r, 1)
	}

	var Hx mat.VecDense
	Hx.MulVec(H, f.state)
	y := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		y.SetVec(i, zPos[i]-Hx.AtVec(i))
	}

	var PHt mat.Dense
	PHt.Mul(f.cov, H.T()) // N x 3

	var HP mat.Dense
	HP.Mul(H, f.cov) // 3 x N
	var S mat.Dense
	S.Mul(&HP, H.T()) // 3 x 3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			S.Set(i, j, S.At(i, j)+R[i][j])
		}
	}

	symS := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			symS.SetSym(i, j, 0.5*(S.At(i, j)+S.At(j, i)))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(symS); !ok {
		f.selfHeal()
		return ErrCovarianceDegraded
	}

	var X mat.Dense
	if err := chol.SolveTo(&X, PHt.T()); err != nil {
		f.selfHeal()
		return fmt.Errorf("%w: %v", ErrCovarianceDegraded, err)
	}
	var K mat.Dense
	K.CloneFrom(X.T()) // N x 3

	var Sy mat.VecDense
	if err := chol.SolveVecTo(&Sy, y); err == nil {
		f.nisSum += mat.Dot(y, &Sy)
		f.nisCount++
	}

	var Ky mat.VecDense
	Ky.MulVec(&K, y)
	newState := mat.NewVecDense(N, nil)
	newState.AddVec(f.state, &Ky)

	I := identity(N)
	var KH mat.Dense
	KH.Mul(&K, H)
	var IKH mat.Dense
	IKH.Sub(I, &KH)

	var IKHP mat.Dense
	IKHP.Mul(&IKH, f.cov)
	var term1 mat.Dense
	term1.Mul(&IKHP, IKH.T())

	Rm := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			Rm.Set(i, j, R[i][j])
		}
	}
	var KR mat.Dense
	KR.Mul(&K, Rm)
	var term2 mat.Dense
	term2.Mul(&KR, K.T())

	var newCov mat.Dense
	newCov.Add(&term1, &term2)

	f.state = newState
	f.cov = &newCov
	return nil
}

// AverageNIS returns the running average normalized-innovation-squared
// statistic, exposed for blind-fitness consumption.
func (f *Filter) AverageNIS() float64 {
	if f.nisCount == 0 {
		return 0
	}
	return f.nisSum / float64(f.nisCount)
}

// CurrentBlock returns a copy of the current (most recent) state
// block.
func (f *Filter) CurrentBlock() []float64 {
	d := f.cfg.StateDim
	out := make([]float64, d)
	for i := 0; i < d; i++ {
		out[i] = f.state.AtVec(i)
	}
	return out
}

// CurrentCovarianceBlock returns a copy of the current block's d×d
// covariance.
func (f *Filter) CurrentCovarianceBlock() [][]float64 {
	d := f.cfg.StateDim
	out := make([][]float64, d)
	for i := range out {
		out[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			out[i][j] = f.cov.At(i, j)
		}
	}
	return out
}

func (f *Filter) selfHeal() {
	r, _ := f.cov.Dims()
	newCov := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		newCov.Set(i, i, f.cfg.SelfHealVariance)
	}
	f.cov = newCov
	monitoring.Warnf("timeengine: covariance degraded, self-healed to diagonal %.0f", f.cfg.SelfHealVariance)
}

// nearestSlot finds the history slot whose timestamp is closest to
// tMeas, favoring the more recent of two equidistant slots. It
// returns -1 if tMeas precedes the oldest retained slot.
func (f *Filter) nearestSlot(tMeas float64) int {
	n := f.blocks
	oldest := f.timestamps[n-1]
	if tMeas < oldest {
		return -1
	}

	best := 0
	bestDist := math.Abs(f.timestamps[0] - tMeas)
	for i := 1; i < n; i++ {
		dist := math.Abs(f.timestamps[i] - tMeas)
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// transition builds the state-transition matrix for a dt-second step:
// constant-velocity for the default 6-dimensional state, constant-
// acceleration once StateDim reaches 9.
func (f *Filter) transition(dt float64) *mat.Dense {
	d := f.cfg.StateDim
	F := identity(d)

	if d >= 9 {
		for i := 0; i < 3; i++ {
			F.Set(i, i+3, dt)
			F.Set(i, i+6, 0.5*dt*dt)
			F.Set(i+3, i+6, dt)
		}
		return F
	}

	for i := 0; i < 3 && i+3 < d; i++ {
		F.Set(i, i+3, dt)
	}
	return F
}

// processNoise builds the current block's process-noise covariance:
// variance on the velocity (and acceleration, if present) rows scaled
// by dt, plus a small position-row term reflecting the unmodeled
// higher-order motion.
func (f *Filter) processNoise(dt float64) *mat.Dense {
	d := f.cfg.StateDim
	Q := mat.NewDense(d, d, nil)
	q := f.cfg.ProcessNoiseStd * f.cfg.ProcessNoiseStd * dt

	for i := 3; i < d; i++ {
		Q.Set(i, i, q)
	}
	for i := 0; i < 3 && i < d; i++ {
		Q.Set(i, i, q*dt*dt/4)
	}
	return Q
}
