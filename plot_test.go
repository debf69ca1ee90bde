package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleResults() []Result {
	results := make([]Result, 0)
	for _, threads := range []int{16, 1, 8, 2} {
		for _, joins := range []int{10, 1, 2} {
			mean := float64(joins) / float64(threads)
			results = append(results, Result{
				Settings: Settings{Threads: threads},
				Joins:    joins,
				Summary:  Summary{Mean: mean, StdDev: mean / 10, MAD: mean / 20},
				Samples:  []float64{mean, mean},
			})
		}
	}
	for _, memory := range []string{"16GB", "512MB", "1GB", "2GB"} {
		for _, joins := range []int{1, 2} {
			results = append(results, Result{
				Settings: Settings{Memory: memory},
				Joins:    joins,
				Summary:  Summary{Mean: 0.01 * float64(joins)},
				Samples:  []float64{0.01 * float64(joins)},
			})
		}
	}
	return results
}

func TestPivotThreads(t *testing.T) {
	table, err := Pivot(sampleResults(), DimensionThreads)
	require.Nil(t, err)
	require.Equal(t, []string{"1", "2", "8", "16"}, table.Categories)
	require.Equal(t, []int{1, 2, 10}, table.Joins)
	require.Equal(t, PivotCell{Mean: 10.0 / 8, MAD: 10.0 / 8 / 20}, table.Cells["8"][10])
}

func TestPivotMemory(t *testing.T) {
	table, err := Pivot(sampleResults(), DimensionMemory)
	require.Nil(t, err)
	require.Equal(t, []string{"1GB", "2GB", "16GB", "512MB"}, table.Categories)
	require.Equal(t, []int{1, 2}, table.Joins)
}

func TestPivotKeepsLastDuplicate(t *testing.T) {
	results := []Result{
		{Settings: Settings{Threads: 4}, Joins: 1, Summary: Summary{Mean: 1}},
		{Settings: Settings{Threads: 4}, Joins: 1, Summary: Summary{Mean: 2}},
	}
	table, err := Pivot(results, DimensionThreads)
	require.Nil(t, err)
	require.Equal(t, 2.0, table.Cells["4"][1].Mean)
}

func TestPivotWithoutDimension(t *testing.T) {
	results := []Result{{Settings: Settings{Memory: "1GB"}, Joins: 1}}
	_, err := Pivot(results, DimensionThreads)
	require.Error(t, err)

	_, err = Pivot(results, Dimension("disk"))
	require.Error(t, err)
}

func TestFloorLogScale(t *testing.T) {
	scale := floorLogScale{Floor: 1e-3}
	require.InDelta(t, 0.0, scale.Normalize(0, 10, 0), 1e-12)
	require.InDelta(t, 0.0, scale.Normalize(1e-3, 10, 1e-3), 1e-12)
	require.InDelta(t, 1.0, scale.Normalize(1e-3, 10, 10), 1e-12)
	require.InDelta(t, 0.75, scale.Normalize(1e-3, 10, 1), 1e-12)
}

func TestPlotResults(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "results.csv")
	for _, result := range sampleResults() {
		require.Nil(t, AppendResult(input, result))
	}
	// sparse cell: 16 threads has no 3-join measurement
	require.Nil(t, AppendResult(input, Result{Settings: Settings{Threads: 2}, Joins: 3, Summary: Summary{Mean: 0.5}, Samples: []float64{0.5}}))

	files, err := PlotResults(input, filepath.Join(dir, "plots"), "png")
	require.Nil(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "plots", "threads.png"),
		filepath.Join(dir, "plots", "memory.png"),
	}, files)
	for _, file := range files {
		require.FileExists(t, file)
	}
}

func TestPlotResultsOnlyThreads(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "results.csv")
	require.Nil(t, AppendResult(input, Result{Settings: Settings{Threads: 1}, Joins: 1, Summary: Summary{}, Samples: []float64{0}}))

	files, err := PlotResults(input, dir, "svg")
	require.Nil(t, err)
	require.Equal(t, []string{filepath.Join(dir, "threads.svg")}, files)
}

func TestErrorPointsSkipMissingCells(t *testing.T) {
	table := PivotTable{
		Dimension:  DimensionThreads,
		Categories: []string{"1", "2", "4"},
		Joins:      []int{1, 3},
		Cells: map[string]map[int]PivotCell{
			"1": {1: {Mean: 2, MAD: 0.2}, 3: {Mean: 3, MAD: 0.3}},
			"2": {1: {Mean: 1, MAD: 0.1}},
			"4": {1: {Mean: 0.5, MAD: 0.05}, 3: {Mean: 1.5, MAD: 0.15}},
		},
	}

	points := table.errorPoints(3, 0.2)
	require.Equal(t, 2, points.Len())
	require.Equal(t, 0.2, points.XYs[0].X)
	require.Equal(t, 3.0, points.XYs[0].Y)
	require.InDelta(t, 2.2, points.XYs[1].X, 1e-12)
	low, high := points.YError(1)
	require.Equal(t, 0.15, low)
	require.Equal(t, 0.15, high)

	require.Equal(t, 3, table.errorPoints(1, 0).Len())

	_, err := table.Render()
	require.Nil(t, err)
}
