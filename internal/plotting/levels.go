package plotting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var niceSteps = []float64{1, 2, 2.5, 5, 10}

// NiceLevels picks about n evenly spaced contour levels covering the 5th to
// 95th percentile of data. Data straddling zero gets limits symmetric about
// zero so that a diverging palette centres on it. NaNs are ignored.
func NiceLevels(data []float64, n int) []float64 {
	vals := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	sort.Float64s(vals)

	lo := stat.Quantile(0.05, stat.LinInterp, vals, nil)
	hi := stat.Quantile(0.95, stat.LinInterp, vals, nil)
	if lo < 0 && hi > 0 {
		m := math.Max(-lo, hi)
		lo, hi = -m, m
	}
	if hi <= lo {
		return []float64{lo}
	}

	step := niceStep((hi - lo) / float64(n))
	first := math.Ceil(lo/step - 1e-9)
	last := math.Floor(hi/step + 1e-9)
	levels := make([]float64, 0, int(last-first)+1)
	for k := first; k <= last; k++ {
		v := k * step
		if v == 0 {
			v = 0 // drop negative zero
		}
		levels = append(levels, v)
	}
	return levels
}

func niceStep(raw float64) float64 {
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, s := range niceSteps {
		if s*mag >= raw*(1-1e-12) {
			return s * mag
		}
	}
	return 10 * mag
}
