package term

import "github.com/guptarohit/asciigraph"

// LowerBoundChart plots the lower bound after each fit call. It returns
// the empty string for fewer than two values.
func LowerBoundChart(history []float64) string {
	if len(history) < 2 {
		return ""
	}
	return asciigraph.Plot(history,
		asciigraph.Height(10),
		asciigraph.Precision(1),
		asciigraph.Caption("lower bound per fit call"),
	)
}
