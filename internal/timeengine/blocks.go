package timeengine

import "gonum.org/v1/gonum/mat"

// blockAt copies the d×d submatrix of m with top-left corner
// (rowOff, colOff).
func blockAt(m mat.Matrix, rowOff, colOff, d int) *mat.Dense {
	b := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			b.Set(i, j, m.At(rowOff+i, colOff+j))
		}
	}
	return b
}

// setBlockAt writes block into dst with its top-left corner at
// (rowOff, colOff).
func setBlockAt(dst *mat.Dense, rowOff, colOff int, block mat.Matrix) {
	r, c := block.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(rowOff+i, colOff+j, block.At(i, j))
		}
	}
}

// vecBlockAt copies the d-length subvector of v starting at off.
func vecBlockAt(v mat.Vector, off, d int) *mat.VecDense {
	b := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		b.SetVec(i, v.AtVec(off+i))
	}
	return b
}

// setVecBlockAt writes block into dst starting at off.
func setVecBlockAt(dst *mat.VecDense, off int, block mat.Vector) {
	n := block.Len()
	for i := 0; i < n; i++ {
		dst.SetVec(off+i, block.AtVec(i))
	}
}

// identity returns the n×n identity matrix.
func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
