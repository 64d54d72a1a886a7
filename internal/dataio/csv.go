// Package dataio reads data matrices and grid descriptions from CSV and
// persists analysis results as (optionally zstd-compressed) JSON.
package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var ErrRagged = errors.New("dataio: rows have differing column counts")

// ReadMatrixCSV parses a numeric CSV into an n x p matrix, one observation per
// row. With header set, the first record is skipped.
func ReadMatrixCSV(r io.Reader, header bool) (*mat.Dense, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	var (
		data []float64
		cols int
		rows int
	)
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if header && line == 1 {
			continue
		}
		if rows == 0 {
			cols = len(record)
		} else if len(record) != cols {
			return nil, fmt.Errorf("line %d: %d fields, want %d: %w", line, len(record), cols, ErrRagged)
		}
		for j, field := range record {
			v, err := parseFloat(field)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, j+1, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("read csv: no data rows")
	}
	return mat.NewDense(rows, cols, data), nil
}

// WriteMatrixCSV writes m as CSV with full float64 precision.
func WriteMatrixCSV(w io.Writer, m mat.Matrix) error {
	cw := csv.NewWriter(w)
	rows, cols := m.Dims()
	record := make([]string, cols)
	for i := range rows {
		for j := range cols {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na":
		return 0, fmt.Errorf("missing value %q", s)
	}
	return strconv.ParseFloat(s, 64)
}

// Point is the location of one data column.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Grid lists the location of every data column, in column order.
type Grid []Point

// ReadGridCSV reads "lat,lon" rows. A first row that does not parse as
// numbers is treated as a header.
func ReadGridCSV(r io.Reader) (Grid, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}

	grid := make(Grid, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("grid line %d: want lat,lon", i+1)
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errLat != nil || errLon != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("grid line %d: %w", i+1, errors.Join(errLat, errLon))
		}
		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("grid line %d: latitude %v out of range", i+1, lat)
		}
		grid = append(grid, Point{Lat: lat, Lon: lon})
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("read grid: no points")
	}
	return grid, nil
}

// Latitudes returns the latitude of each column.
func (g Grid) Latitudes() []float64 {
	out := make([]float64, len(g))
	for i, p := range g {
		out[i] = p.Lat
	}
	return out
}

// UniqueLatitudes returns the distinct latitudes in ascending order.
func (g Grid) UniqueLatitudes() []float64 {
	return unique(g, func(p Point) float64 { return p.Lat })
}

// UniqueLongitudes returns the distinct longitudes in ascending order.
func (g Grid) UniqueLongitudes() []float64 {
	return unique(g, func(p Point) float64 { return p.Lon })
}

func unique(g Grid, key func(Point) float64) []float64 {
	seen := make(map[float64]struct{}, len(g))
	out := make([]float64, 0)
	for _, p := range g {
		k := key(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}
