package eof

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NegativeTolerance is the magnitude below which a negative eigenvalue is
// treated as round-off and clamped to zero by Loadings.
const NegativeTolerance = 1e-10

// Decomposition pairs eigenvalues with the eigenvector columns they belong to.
// Column i of Eigenvectors corresponds to Eigenvalues[i].
type Decomposition struct {
	Eigenvalues  []float64  // 1D: descending
	Eigenvectors *mat.Dense // 2D: p x r, unit-norm columns
}

// Modes returns the number of eigenvalue/eigenvector pairs.
func (d *Decomposition) Modes() int {
	return len(d.Eigenvalues)
}

// SVDResult is the output of DecomposeSVD.
type SVDResult struct {
	Decomposition
	Loadings *mat.Dense // 2D: p x k
	Scores   *mat.Dense // 2D: k x n

	u    *mat.Dense // left singular vectors, n x r
	nobs int
}

// StandardizedScores returns the first k PCs scaled to unit variance,
// sqrt(n-1) * U[:, :k]^T.
func (r *SVDResult) StandardizedScores(k int) (*mat.Dense, error) {
	_, cols := r.u.Dims()
	if k < 1 || k > cols {
		return nil, fmt.Errorf("standardized scores: k=%d, available=%d: %w", k, cols, ErrModeCount)
	}
	return standardizedFromU(r.u, k, r.nobs), nil
}
