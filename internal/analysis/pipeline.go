// Package analysis runs the end-to-end EOF workflow on a data matrix:
// anomalies, area weighting, decomposition and derived statistics.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/climate-lab/eofkit/internal/eof"
	"github.com/climate-lab/eofkit/internal/utils/logger"
)

type Pipeline struct {
	Modes               int
	Method              Method
	Standardize         bool
	EffectiveSampleSize float64   // 0 means use the number of observations
	Latitudes           []float64 // one per data column; nil disables weighting
}

type Option func(*Pipeline)

func WithModes(k int) Option {
	return func(p *Pipeline) {
		p.Modes = k
	}
}

func WithMethod(m Method) Option {
	return func(p *Pipeline) {
		p.Method = m
	}
}

func WithStandardize(standardize bool) Option {
	return func(p *Pipeline) {
		p.Standardize = standardize
	}
}

func WithEffectiveSampleSize(n float64) Option {
	return func(p *Pipeline) {
		p.EffectiveSampleSize = n
	}
}

func WithLatitudes(lats []float64) Option {
	return func(p *Pipeline) {
		p.Latitudes = lats
	}
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		Modes:  4,
		Method: MethodSVD,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ParseMethod accepts "svd" or "covariance" (also "cov", "eig").
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "svd", "":
		return MethodSVD, nil
	case "covariance", "cov", "eig":
		return MethodCovariance, nil
	}
	return "", fmt.Errorf("unknown decomposition method %q", s)
}

func (p *Pipeline) Run(z mat.Matrix) (*Result, error) {
	n, cols := z.Dims()
	logger.Sugar().Infow("Running EOF analysis",
		"observations", n, "variables", cols, "modes", p.Modes, "method", p.Method,
		"standardize", p.Standardize, "weighted", p.Latitudes != nil)

	prepared, weights, err := p.prepare(z)
	if err != nil {
		return nil, err
	}

	var (
		decomp *eof.Decomposition
		pcs    *mat.Dense
		loads  *mat.Dense
		stdPCs *mat.Dense
	)
	switch p.Method {
	case MethodSVD:
		res, err := eof.DecomposeSVD(prepared, p.Modes)
		if err != nil {
			return nil, err
		}
		decomp = &res.Decomposition
		pcs = res.Scores
		loads = res.Loadings
		if stdPCs, err = res.StandardizedScores(p.Modes); err != nil {
			return nil, err
		}
	case MethodCovariance:
		if decomp, err = eof.DecomposeCovariance(prepared); err != nil {
			return nil, err
		}
		if pcs, err = eof.PrincipalComponents(prepared, decomp.Eigenvectors, p.Modes); err != nil {
			return nil, err
		}
		if loads, err = eof.Loadings(decomp.Eigenvalues, decomp.Eigenvectors, p.Modes); err != nil {
			return nil, err
		}
		stdPCs = standardizeRows(pcs, decomp.Eigenvalues)
	default:
		return nil, fmt.Errorf("unknown decomposition method %q", p.Method)
	}

	neff := p.EffectiveSampleSize
	if neff <= 0 {
		neff = float64(n)
	}

	pct, err := eof.ExplainedVariance(decomp.Eigenvalues, p.Modes)
	if err != nil {
		return nil, err
	}
	northAll, err := eof.NorthTest(decomp.Eigenvalues, neff)
	if err != nil {
		return nil, err
	}
	pctAll, err := eof.ExplainedVariance(decomp.Eigenvalues, 0)
	if err != nil {
		return nil, err
	}

	rows, _ := decomp.Eigenvectors.Dims()
	result := &Result{
		Method:              p.Method,
		Observations:        n,
		Variables:           cols,
		Modes:               p.Modes,
		EffectiveSampleSize: neff,
		Eigenvalues:         decomp.Eigenvalues,
		ExplainedVariance:   pct,
		NorthError:          northAll[:p.Modes],
		Separable:           Separable(pctAll, northAll)[:p.Modes],
		Eigenvectors:        mat.DenseCopyOf(decomp.Eigenvectors.Slice(0, rows, 0, p.Modes)),
		Loadings:            loads,
		Patterns:            unweight(loads, weights),
		PCs:                 pcs,
		StandardizedPCs:     stdPCs,
	}

	for i := range p.Modes {
		logger.Sugar().Debugw("EOF mode", "mode", i+1, "eigenvalue", result.Eigenvalues[i],
			"explainedVariance", result.ExplainedVariance[i], "northError", result.NorthError[i],
			"separable", result.Separable[i])
	}

	return result, nil
}

func (p *Pipeline) prepare(z mat.Matrix) (*mat.Dense, []float64, error) {
	var (
		prepared *mat.Dense
		err      error
	)
	if p.Standardize {
		prepared, err = eof.Standardize(z)
	} else {
		prepared, err = eof.Anomalies(z)
	}
	if err != nil {
		return nil, nil, err
	}

	if p.Latitudes == nil {
		return prepared, nil, nil
	}

	weights := eof.LatitudeWeights(p.Latitudes)
	weighted, err := eof.ApplyColumnWeights(prepared, weights)
	if err != nil {
		return nil, nil, err
	}
	return weighted, weights, nil
}

// Separable applies North's rule of thumb to percent variances and their
// sampling errors: a mode is separable when its gap to each neighbouring mode
// is larger than its own sampling error.
func Separable(pct, northErr []float64) []bool {
	out := make([]bool, len(pct))
	for i := range pct {
		ok := true
		if i > 0 && pct[i-1]-pct[i] <= northErr[i] {
			ok = false
		}
		if i+1 < len(pct) && pct[i]-pct[i+1] <= northErr[i] {
			ok = false
		}
		out[i] = ok
	}
	return out
}

// unweight divides each row of the p x k loadings by the latitude weight of
// that grid point; rows with zero weight are set to zero.
func unweight(loads *mat.Dense, weights []float64) *mat.Dense {
	out := mat.DenseCopyOf(loads)
	if weights == nil {
		return out
	}
	rows, cols := out.Dims()
	for i := range rows {
		w := weights[i]
		for j := range cols {
			if w == 0 || math.IsNaN(w) {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, out.At(i, j)/w)
		}
	}
	return out
}

// standardizeRows divides score row j by sqrt(eigenvalue j), giving
// unit-variance PCs from covariance-path scores.
func standardizeRows(pcs *mat.Dense, eigenvalues []float64) *mat.Dense {
	out := mat.DenseCopyOf(pcs)
	rows, cols := out.Dims()
	for j := range rows {
		s := 0.0
		if eigenvalues[j] > 0 {
			s = math.Sqrt(eigenvalues[j])
		}
		for i := range cols {
			if s == 0 {
				out.Set(j, i, 0)
				continue
			}
			out.Set(j, i, out.At(j, i)/s)
		}
	}
	return out
}
