package dataio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"

	"github.com/climate-lab/eofkit/internal/analysis"
)

// ResultFile is the on-disk form of an analysis.Result. Matrices are stored
// row-major as nested arrays.
type ResultFile struct {
	Method              string      `json:"method"`
	Observations        int         `json:"observations"`
	Variables           int         `json:"variables"`
	Modes               int         `json:"modes"`
	EffectiveSampleSize float64     `json:"effectiveSampleSize"`
	Eigenvalues         []float64   `json:"eigenvalues"`
	ExplainedVariance   []float64   `json:"explainedVariance"`
	NorthError          []float64   `json:"northError"`
	Separable           []bool      `json:"separable"`
	Eigenvectors        [][]float64 `json:"eigenvectors"`
	Loadings            [][]float64 `json:"loadings"`
	Patterns            [][]float64 `json:"patterns"`
	PCs                 [][]float64 `json:"pcs"`
	StandardizedPCs     [][]float64 `json:"standardizedPcs"`
	Grid                Grid        `json:"grid,omitempty"`
}

func NewResultFile(res *analysis.Result, grid Grid) ResultFile {
	return ResultFile{
		Method:              string(res.Method),
		Observations:        res.Observations,
		Variables:           res.Variables,
		Modes:               res.Modes,
		EffectiveSampleSize: res.EffectiveSampleSize,
		Eigenvalues:         res.Eigenvalues,
		ExplainedVariance:   res.ExplainedVariance,
		NorthError:          res.NorthError,
		Separable:           res.Separable,
		Eigenvectors:        toRows(res.Eigenvectors),
		Loadings:            toRows(res.Loadings),
		Patterns:            toRows(res.Patterns),
		PCs:                 toRows(res.PCs),
		StandardizedPCs:     toRows(res.StandardizedPCs),
		Grid:                grid,
	}
}

// Result converts the file form back into an analysis.Result.
func (f ResultFile) Result() (*analysis.Result, error) {
	res := &analysis.Result{
		Method:              analysis.Method(f.Method),
		Observations:        f.Observations,
		Variables:           f.Variables,
		Modes:               f.Modes,
		EffectiveSampleSize: f.EffectiveSampleSize,
		Eigenvalues:         f.Eigenvalues,
		ExplainedVariance:   f.ExplainedVariance,
		NorthError:          f.NorthError,
		Separable:           f.Separable,
	}
	var err error
	for _, m := range []struct {
		name string
		rows [][]float64
		dst  **mat.Dense
	}{
		{"eigenvectors", f.Eigenvectors, &res.Eigenvectors},
		{"loadings", f.Loadings, &res.Loadings},
		{"patterns", f.Patterns, &res.Patterns},
		{"pcs", f.PCs, &res.PCs},
		{"standardizedPcs", f.StandardizedPCs, &res.StandardizedPCs},
	} {
		if *m.dst, err = fromRows(m.rows); err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return res, nil
}

// WriteResult writes f as JSON to path. A ".zst" suffix compresses the output.
// The file is written to a temporary name first and renamed into place.
func WriteResult(path string, f ResultFile) error {
	data, err := sonic.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if isZstd(path) {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("zstd: failed to create writer: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd: close writer: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".result-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadResult loads a file written by WriteResult.
func ReadResult(path string) (ResultFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ResultFile{}, err
	}

	if isZstd(path) {
		r, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return ResultFile{}, fmt.Errorf("zstd: failed to create reader: %w", err)
		}
		defer r.Close()

		out, err := io.ReadAll(r)
		if err != nil {
			return ResultFile{}, fmt.Errorf("zstd: failed to decompress result: %w", err)
		}
		raw = out
	}

	var f ResultFile
	if err := sonic.Unmarshal(raw, &f); err != nil {
		return ResultFile{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return f, nil
}

func isZstd(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}

func toRows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := range rows {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func fromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, nil
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(r), cols, ErrRagged)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
