package eof

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LatitudeWeights returns sqrt(cos(latitude)) for latitudes in degrees.
// Latitudes outside [-90, 90] yield NaN.
func LatitudeWeights(latitudes []float64) []float64 {
	weights := make([]float64, len(latitudes))
	for i, lat := range latitudes {
		c := math.Cos(lat * math.Pi / 180)
		// cos(±90°) is a few ulps off zero
		if math.Abs(c) < 1e-15 {
			c = 0
		}
		weights[i] = math.Sqrt(c)
	}
	return weights
}

// ApplyColumnWeights returns a copy of z with column j multiplied by w[j].
func ApplyColumnWeights(z mat.Matrix, w []float64) (*mat.Dense, error) {
	n, p := z.Dims()
	if len(w) != p {
		return nil, fmt.Errorf("apply weights: %d weights for %d columns: %w", len(w), p, ErrDimensionMismatch)
	}
	out := mat.DenseCopyOf(z)
	for i := range n {
		for j := range p {
			out.Set(i, j, out.At(i, j)*w[j])
		}
	}
	return out, nil
}

// Anomalies returns a copy of z with each column's mean removed.
func Anomalies(z mat.Matrix) (*mat.Dense, error) {
	n, p := z.Dims()
	if n < 1 || p < 1 {
		return nil, fmt.Errorf("anomalies: %w", ErrEmpty)
	}
	out := mat.DenseCopyOf(z)
	col := make([]float64, n)
	for j := range p {
		mat.Col(col, j, out)
		mean := stat.Mean(col, nil)
		for i := range n {
			col[i] -= mean
		}
		out.SetCol(j, col)
	}
	return out, nil
}

// Standardize returns a copy of z with each column centered and scaled to
// unit sample standard deviation. A constant column is an error.
func Standardize(z mat.Matrix) (*mat.Dense, error) {
	n, p := z.Dims()
	if n < 2 {
		return nil, fmt.Errorf("standardize: n=%d: %w", n, ErrInsufficientObservations)
	}
	out := mat.DenseCopyOf(z)
	col := make([]float64, n)
	for j := range p {
		mat.Col(col, j, out)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 {
			return nil, fmt.Errorf("standardize: column %d: %w", j, ErrZeroVariance)
		}
		for i := range n {
			col[i] = (col[i] - mean) / std
		}
		out.SetCol(j, col)
	}
	return out, nil
}
