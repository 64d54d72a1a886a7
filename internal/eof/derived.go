package eof

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PrincipalComponents projects z onto the first k eigenvector columns and
// returns the k x n score matrix (Z * V[:, :k])^T.
func PrincipalComponents(z, eigenvectors mat.Matrix, k int) (*mat.Dense, error) {
	_, p := z.Dims()
	rows, cols := eigenvectors.Dims()
	if p != rows {
		return nil, fmt.Errorf("principal components: data has %d columns, eigenvectors have %d rows: %w", p, rows, ErrDimensionMismatch)
	}
	if k < 1 || k > cols {
		return nil, fmt.Errorf("principal components: k=%d, available=%d: %w", k, cols, ErrModeCount)
	}

	var scores mat.Dense
	scores.Mul(leadingColumns(eigenvectors, k).T(), z.T())
	return &scores, nil
}

// Loadings scales the first k eigenvectors by the square root of their
// eigenvalues. Negative eigenvalues within round-off of zero are treated as
// zero; anything more negative is an error.
func Loadings(eigenvalues []float64, eigenvectors mat.Matrix, k int) (*mat.Dense, error) {
	rows, cols := eigenvectors.Dims()
	if len(eigenvalues) != cols {
		return nil, fmt.Errorf("loadings: %d eigenvalues, %d eigenvectors: %w", len(eigenvalues), cols, ErrDimensionMismatch)
	}
	if k < 1 || k > cols {
		return nil, fmt.Errorf("loadings: k=%d, available=%d: %w", k, cols, ErrModeCount)
	}

	tol := NegativeTolerance * math.Max(1, maxAbs(eigenvalues))
	out := mat.NewDense(rows, k, nil)
	for j := range k {
		ev := eigenvalues[j]
		if ev < 0 {
			if ev < -tol {
				return nil, fmt.Errorf("loadings: mode %d eigenvalue %g: %w", j, ev, ErrNegativeEigenvalue)
			}
			ev = 0
		}
		scale := math.Sqrt(ev)
		for i := range rows {
			out.Set(i, j, eigenvectors.At(i, j)*scale)
		}
	}
	return out, nil
}

// ExplainedVariance returns the percent of total variance carried by each of
// the first k modes. k <= 0 selects all modes.
func ExplainedVariance(eigenvalues []float64, k int) ([]float64, error) {
	if len(eigenvalues) == 0 {
		return nil, fmt.Errorf("explained variance: %w", ErrEmpty)
	}
	if k <= 0 {
		k = len(eigenvalues)
	}
	if k > len(eigenvalues) {
		return nil, fmt.Errorf("explained variance: k=%d, available=%d: %w", k, len(eigenvalues), ErrModeCount)
	}

	total := floats.Sum(eigenvalues)
	if total == 0 {
		return nil, fmt.Errorf("explained variance: %w", ErrZeroVariance)
	}

	pct := make([]float64, k)
	copy(pct, eigenvalues[:k])
	floats.Scale(100/total, pct)
	return pct, nil
}

// NorthTest returns the North et al. (1982) sampling error of each eigenvalue,
// lambda * sqrt(2/N*), as a percent of total variance. Deciding whether
// neighbouring modes are separable is left to the caller.
func NorthTest(eigenvalues []float64, effectiveSampleSize float64) ([]float64, error) {
	if len(eigenvalues) == 0 {
		return nil, fmt.Errorf("north test: %w", ErrEmpty)
	}
	if !(effectiveSampleSize > 0) || math.IsInf(effectiveSampleSize, 1) {
		return nil, fmt.Errorf("north test: n=%v: %w", effectiveSampleSize, ErrInvalidSampleSize)
	}

	total := floats.Sum(eigenvalues)
	if total == 0 {
		return nil, fmt.Errorf("north test: %w", ErrZeroVariance)
	}

	errs := make([]float64, len(eigenvalues))
	copy(errs, eigenvalues)
	floats.Scale(math.Sqrt(2/effectiveSampleSize)*100/total, errs)
	return errs, nil
}

func leadingColumns(m mat.Matrix, k int) mat.Matrix {
	rows, _ := m.Dims()
	if d, ok := m.(*mat.Dense); ok {
		return d.Slice(0, rows, 0, k)
	}
	return mat.DenseCopyOf(m).Slice(0, rows, 0, k)
}

func maxAbs(vals []float64) float64 {
	m := 0.0
	for _, v := range vals {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
