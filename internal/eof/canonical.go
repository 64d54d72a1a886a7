package eof

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// descendingOrder returns the indices of vals sorted by descending value.
// Equal values keep their original relative order.
func descendingOrder(vals []float64) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vals[order[a]] > vals[order[b]]
	})
	return order
}

func permute(vals []float64, order []int) []float64 {
	out := make([]float64, len(order))
	for i, idx := range order {
		out[i] = vals[idx]
	}
	return out
}

func permuteColumns(m *mat.Dense, order []int) *mat.Dense {
	rows, _ := m.Dims()
	out := mat.NewDense(rows, len(order), nil)
	col := make([]float64, rows)
	for j, idx := range order {
		mat.Col(col, idx, m)
		out.SetCol(j, col)
	}
	return out
}

// normalizeSigns flips each column of vecs so that its largest-magnitude
// component is positive. The same column of every partner is flipped with it.
func normalizeSigns(vecs *mat.Dense, partners ...*mat.Dense) {
	rows, cols := vecs.Dims()
	for j := range cols {
		pivot := 0.0
		for i := range rows {
			if v := vecs.At(i, j); math.Abs(v) > math.Abs(pivot) {
				pivot = v
			}
		}
		if pivot >= 0 {
			continue
		}
		negateColumn(vecs, j)
		for _, p := range partners {
			negateColumn(p, j)
		}
	}
}

func negateColumn(m *mat.Dense, j int) {
	rows, _ := m.Dims()
	for i := range rows {
		m.Set(i, j, -m.At(i, j))
	}
}

func checkFinite(m mat.Matrix) error {
	rows, cols := m.Dims()
	for i := range rows {
		for j := range cols {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("element (%d,%d)=%v: %w", i, j, v, ErrNonFinite)
			}
		}
	}
	return nil
}
