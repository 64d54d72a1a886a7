package plotting

import (
	"fmt"
	"io"
	"strings"
)

const maxBarWidth = 50

// PlotExplainedVarianceTerminal prints one bar per mode, scaled to the
// largest share, with the North error alongside when given.
func PlotExplainedVarianceTerminal(w io.Writer, pct, northErr []float64, title string) {
	if len(pct) == 0 {
		return
	}
	maxPct := pct[0]
	for _, v := range pct {
		maxPct = max(maxPct, v)
	}

	fmt.Fprintf(w, "\n%s:\n", title)
	fmt.Fprintln(w, "Mode | Var (%)  | Bar Chart")
	fmt.Fprintln(w, "-----|----------|"+strings.Repeat("-", maxBarWidth))

	for i, v := range pct {
		barWidth := maxBarWidth / 2
		if maxPct > 0 {
			barWidth = int(v / maxPct * float64(maxBarWidth))
		}
		bar := strings.Repeat("█", barWidth)
		if barWidth == 0 {
			bar = "▏"
		}
		if i < len(northErr) {
			fmt.Fprintf(w, "%4d | %8.3f | %s (±%.3f)\n", i+1, v, bar, northErr[i])
		} else {
			fmt.Fprintf(w, "%4d | %8.3f | %s\n", i+1, v, bar)
		}
	}

	total := 0.0
	for _, v := range pct {
		total += v
	}
	fmt.Fprintf(w, "\nRetained modes explain %.2f%% of the variance\n", total)
}
