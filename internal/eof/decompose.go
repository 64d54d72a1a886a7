// Package eof computes Empirical Orthogonal Functions (principal components)
// of an observations x variables data matrix.
//
// Both decomposition paths return modes in the same canonical form: sorted by
// descending eigenvalue, with each eigenvector's largest-magnitude component
// positive. The input matrix is never modified. Centering or standardizing
// the data is the caller's job; see Anomalies and Standardize.
package eof

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SecondMoment returns R = Z^T Z / (n-1) for an n x p matrix Z.
func SecondMoment(z mat.Matrix) *mat.SymDense {
	n, _ := z.Dims()
	var r mat.SymDense
	r.SymOuterK(1/float64(n-1), z.T())
	return &r
}

// DecomposeCovariance eigen-decomposes the p x p second-moment matrix of z.
// z is assumed centered (or standardized) already.
func DecomposeCovariance(z mat.Matrix) (*Decomposition, error) {
	n, p := z.Dims()
	if n < 2 {
		return nil, fmt.Errorf("decompose covariance: n=%d: %w", n, ErrInsufficientObservations)
	}
	if p < 1 {
		return nil, fmt.Errorf("decompose covariance: %w", ErrEmpty)
	}
	if err := checkFinite(z); err != nil {
		return nil, fmt.Errorf("decompose covariance: %w", err)
	}

	r := SecondMoment(z)

	var es mat.EigenSym
	if ok := es.Factorize(r, true); !ok {
		return nil, fmt.Errorf("decompose covariance: eigensym: %w", ErrFactorization)
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)

	order := descendingOrder(es.Values(nil))
	vals := permute(es.Values(nil), order)
	evecs := permuteColumns(&vecs, order)
	normalizeSigns(evecs)

	return &Decomposition{Eigenvalues: vals, Eigenvectors: evecs}, nil
}

// DecomposeSVD computes the EOFs of z from its thin singular value
// decomposition Z = U S V^T, retaining k modes for loadings and scores.
//
// Eigenvalues are S^2/(n-1) with length min(n, p); eigenvectors are the
// columns of V. Loadings are p x k and scores are k x n.
func DecomposeSVD(z mat.Matrix, k int) (*SVDResult, error) {
	n, p := z.Dims()
	if n < 2 {
		return nil, fmt.Errorf("decompose svd: n=%d: %w", n, ErrInsufficientObservations)
	}
	r := min(n, p)
	if k < 1 || k > r {
		return nil, fmt.Errorf("decompose svd: k=%d, min(n,p)=%d: %w", k, r, ErrModeCount)
	}
	if err := checkFinite(z); err != nil {
		return nil, fmt.Errorf("decompose svd: %w", err)
	}

	var svd mat.SVD
	if ok := svd.Factorize(z, mat.SVDThin); !ok {
		return nil, fmt.Errorf("decompose svd: %w", ErrFactorization)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	sigmas := svd.Values(nil)
	order := descendingOrder(sigmas)
	sigmas = permute(sigmas, order)
	evecs := permuteColumns(&v, order)
	lsv := permuteColumns(&u, order)
	normalizeSigns(evecs, lsv)

	dof := float64(n - 1)
	evals := make([]float64, r)
	for i, s := range sigmas {
		evals[i] = s * s / dof
	}

	loadings := mat.NewDense(p, k, nil)
	sqrtDof := math.Sqrt(dof)
	for j := range k {
		scale := sigmas[j] / sqrtDof
		for i := range p {
			loadings.Set(i, j, evecs.At(i, j)*scale)
		}
	}

	scores := mat.NewDense(k, n, nil)
	for j := range k {
		for i := range n {
			scores.Set(j, i, lsv.At(i, j)*sigmas[j])
		}
	}

	return &SVDResult{
		Decomposition: Decomposition{Eigenvalues: evals, Eigenvectors: evecs},
		Loadings:      loadings,
		Scores:        scores,
		u:             lsv,
		nobs:          n,
	}, nil
}

// StandardizedPCs returns the first k principal components of z scaled to
// unit variance, sqrt(n-1) * U[:, :k]^T, as a k x n matrix.
func StandardizedPCs(z mat.Matrix, k int) (*mat.Dense, error) {
	res, err := DecomposeSVD(z, k)
	if err != nil {
		return nil, err
	}
	return res.StandardizedScores(k)
}

func standardizedFromU(u *mat.Dense, k, n int) *mat.Dense {
	rows, _ := u.Dims()
	out := mat.NewDense(k, rows, nil)
	scale := math.Sqrt(float64(n - 1))
	for j := range k {
		for i := range rows {
			out.Set(j, i, u.At(i, j)*scale)
		}
	}
	return out
}

// Reconstruct returns V diag(eigenvalues) V^T. With a full set of modes from
// DecomposeCovariance this recovers the second-moment matrix.
func Reconstruct(eigenvalues []float64, eigenvectors mat.Matrix) (*mat.Dense, error) {
	_, cols := eigenvectors.Dims()
	if len(eigenvalues) != cols {
		return nil, fmt.Errorf("reconstruct: %d eigenvalues, %d eigenvectors: %w", len(eigenvalues), cols, ErrDimensionMismatch)
	}
	if cols == 0 {
		return nil, fmt.Errorf("reconstruct: %w", ErrEmpty)
	}

	diag := make([]float64, len(eigenvalues))
	copy(diag, eigenvalues)

	var vd, out mat.Dense
	vd.Mul(eigenvectors, mat.NewDiagDense(len(diag), diag))
	out.Mul(&vd, eigenvectors.T())
	return &out, nil
}
