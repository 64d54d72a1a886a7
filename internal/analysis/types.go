package analysis

import "gonum.org/v1/gonum/mat"

type Method string

const (
	MethodSVD        Method = "svd"
	MethodCovariance Method = "covariance"
)

// Result is the outcome of one pipeline run over an n x p data matrix,
// retaining k modes.
type Result struct {
	Method              Method
	Observations        int
	Variables           int
	Modes               int
	EffectiveSampleSize float64

	Eigenvalues       []float64  // 1D: all modes, descending
	ExplainedVariance []float64  // 1D: percent, first k modes
	NorthError        []float64  // 1D: percent, first k modes
	Separable         []bool     // 1D: North rule verdict per retained mode
	Eigenvectors      *mat.Dense // 2D: p x k, weighted space
	Loadings          *mat.Dense // 2D: p x k, weighted space
	Patterns          *mat.Dense // 2D: p x k, loadings with latitude weights removed
	PCs               *mat.Dense // 2D: k x n
	StandardizedPCs   *mat.Dense // 2D: k x n, unit variance
}
