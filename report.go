package main

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
)

var highlight = color.New(color.FgGreen, color.Bold).SprintFunc()

// GenerateReport writes a markdown table of results; slowdown is relative to
// the fastest cell with the same join count.
func GenerateReport(w io.Writer, results []Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := make(map[int]float64)
	for _, r := range results {
		if best, ok := fastest[r.Joins]; !ok || r.Summary.Mean < best {
			fastest[r.Joins] = r.Summary.Mean
		}
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Threads | Memory | Joins | Mean | Std Dev | MAD | Samples | Slowdown |")
	fmt.Fprintln(w, "|---------|--------|-------|------|---------|-----|---------|----------|")

	for _, r := range results {
		slowdown := 1.0
		if best := fastest[r.Joins]; best > 0 {
			slowdown = r.Summary.Mean / best
		}
		mean := formatSeconds(r.Summary.Mean)
		if r.Summary.Mean == fastest[r.Joins] {
			mean = highlight(mean)
		}
		fmt.Fprintf(w, "| %s | %s | %d | %s | %s | %s | %d | %.2fx |\n",
			r.Settings.ThreadsLabel(),
			r.Settings.MemoryLabel(),
			r.Joins,
			mean,
			formatSeconds(r.Summary.StdDev),
			formatSeconds(r.Summary.MAD),
			len(r.Samples),
			slowdown,
		)
	}
	return nil
}

func formatSeconds(seconds float64) string {
	switch {
	case math.IsNaN(seconds):
		return "-"
	case seconds < 1e-3:
		return fmt.Sprintf("%.1fµs", seconds*1e6)
	case seconds < 1:
		return fmt.Sprintf("%.2fms", seconds*1e3)
	}
	return fmt.Sprintf("%.3fs", seconds)
}
