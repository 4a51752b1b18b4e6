package tracking

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const ciSearchSteps = 51

func denseFrom(m [][]float64) *mat.Dense {
	n := len(m)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, m[i][j])
		}
	}
	return d
}

// mahalanobisSquared computes (z-hx)^T S^-1 (z-hx), the squared
// Mahalanobis distance used for geometric gating.
func mahalanobisSquared(z, hx []float64, s [][]float64) (float64, error) {
	n := len(z)
	y := make([]float64, n)
	for i := range y {
		y[i] = z[i] - hx[i]
	}

	var sInv mat.Dense
	if err := sInv.Inverse(denseFrom(s)); err != nil {
		return 0, err
	}

	yVec := mat.NewVecDense(n, y)
	var sy mat.VecDense
	sy.MulVec(&sInv, yVec)
	return mat.Dot(yVec, &sy), nil
}

// covarianceIntersect fuses (x, P) with measurement (z, R) by bounded
// line-search over ω, choosing the value minimizing det(P_new). It is
// loop-safe: it never underestimates uncertainty
// when the same information returns through a cycle of agents, which
// is what keeps gossip from becoming over-confident. If either
// covariance is singular the inputs are returned unchanged.
func covarianceIntersect(x, z []float64, p, r [][]float64) ([]float64, [][]float64) {
	n := len(x)

	var pInv, rInv mat.Dense
	if err := pInv.Inverse(denseFrom(p)); err != nil {
		return x, p
	}
	if err := rInv.Inverse(denseFrom(r)); err != nil {
		return x, p
	}

	bestOmega := 0.5
	var bestInfo mat.Dense
	bestDet := math.Inf(1)
	found := false

	for i := 0; i < ciSearchSteps; i++ {
		omega := float64(i) / float64(ciSearchSteps-1)

		var wp, wr mat.Dense
		wp.Scale(omega, &pInv)
		wr.Scale(1-omega, &rInv)

		var info mat.Dense
		info.Add(&wp, &wr)

		var candidateP mat.Dense
		if err := candidateP.Inverse(&info); err != nil {
			continue
		}
		det := math.Abs(mat.Det(&candidateP))
		if det < bestDet {
			bestDet = det
			bestOmega = omega
			bestInfo.CloneFrom(&info)
			found = true
		}
	}

	if !found {
		return x, p
	}

	var newP mat.Dense
	if err := newP.Inverse(&bestInfo); err != nil {
		return x, p
	}

	xVec := mat.NewVecDense(n, append([]float64(nil), x...))
	zVec := mat.NewVecDense(n, append([]float64(nil), z...))

	var wpx mat.VecDense
	wpx.MulVec(&pInv, xVec)
	wpx.ScaleVec(bestOmega, &wpx)

	var wrz mat.VecDense
	wrz.MulVec(&rInv, zVec)
	wrz.ScaleVec(1-bestOmega, &wrz)

	var weighted mat.VecDense
	weighted.AddVec(&wpx, &wrz)

	var xNewVec mat.VecDense
	xNewVec.MulVec(&newP, &weighted)

	xNew := make([]float64, n)
	pNew := make([][]float64, n)
	for i := 0; i < n; i++ {
		xNew[i] = xNewVec.AtVec(i)
		pNew[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			pNew[i][j] = newP.At(i, j)
		}
	}
	return xNew, pNew
}
