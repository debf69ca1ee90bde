package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type Dimension string

const (
	DimensionThreads Dimension = "threads"
	DimensionMemory  Dimension = "memory"
)

// logFloor is the lower bound of the Y axis; smaller values are drawn at the floor.
const logFloor = 1e-3

var memoryOrder = DefaultMemoryLimits

type PivotCell struct {
	Mean float64
	MAD  float64
}

// PivotTable holds results as category x joins, like a dataframe pivot.
type PivotTable struct {
	Dimension  Dimension
	Categories []string
	Joins      []int
	Cells      map[string]map[int]PivotCell
}

func (d Dimension) label(settings Settings) string {
	if d == DimensionThreads {
		return settings.ThreadsLabel()
	}
	return settings.MemoryLabel()
}

func (d Dimension) Title() string {
	if d == DimensionThreads {
		return "Mean Performance by Threads across Joins"
	}
	return "Mean Performance by Memory across Joins"
}

func (d Dimension) XLabel() string {
	if d == DimensionThreads {
		return "Threads"
	}
	return "Memory (GB)"
}

func memoryBytes(value string) uint64 {
	bytes, err := humanize.ParseBytes(value)
	if err != nil {
		return math.MaxUint64
	}
	return bytes
}

func compareCategories(dimension Dimension) func(a, b string) int {
	if dimension == DimensionThreads {
		return func(a, b string) int {
			x, _ := strconv.Atoi(a)
			y, _ := strconv.Atoi(b)
			return x - y
		}
	}
	return func(a, b string) int {
		x, y := slices.Index(memoryOrder, a), slices.Index(memoryOrder, b)
		switch {
		case x >= 0 && y >= 0:
			return x - y
		case x >= 0:
			return -1
		case y >= 0:
			return 1
		}
		xb, yb := memoryBytes(a), memoryBytes(b)
		switch {
		case xb < yb:
			return -1
		case xb > yb:
			return 1
		}
		return 0
	}
}

// Pivot keeps results with a concrete value for dimension and arranges them by
// category and join count. A repeated cell keeps the last row read.
func Pivot(results []Result, dimension Dimension) (PivotTable, error) {
	if dimension != DimensionThreads && dimension != DimensionMemory {
		return PivotTable{}, fmt.Errorf("unknown dimension %q", dimension)
	}
	table := PivotTable{Dimension: dimension, Cells: make(map[string]map[int]PivotCell)}
	for _, result := range results {
		category := dimension.label(result.Settings)
		if category == NotApplicable {
			continue
		}
		if _, ok := table.Cells[category]; !ok {
			table.Cells[category] = make(map[int]PivotCell)
			table.Categories = append(table.Categories, category)
		}
		if !slices.Contains(table.Joins, result.Joins) {
			table.Joins = append(table.Joins, result.Joins)
		}
		table.Cells[category][result.Joins] = PivotCell{Mean: result.Summary.Mean, MAD: result.Summary.MAD}
	}
	if len(table.Categories) == 0 {
		return PivotTable{}, fmt.Errorf("no results with %v set", dimension)
	}
	slices.SortFunc(table.Categories, compareCategories(dimension))
	slices.Sort(table.Joins)
	return table, nil
}

// floorLogScale is a log scale that clamps values below Floor, so zero-based bars can be drawn.
type floorLogScale struct {
	Floor float64
}

func (s floorLogScale) Normalize(min, max, x float64) float64 {
	return plot.LogScale{}.Normalize(math.Max(min, s.Floor), math.Max(max, s.Floor), math.Max(x, s.Floor))
}

type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

func joinsLabel(joins int) string {
	if joins == 1 {
		return "1 join"
	}
	return fmt.Sprintf("%v joins", joins)
}

// errorPoints places one MAD error bar per measured category, offset by xmin.
// Missing cells get no bar.
func (t PivotTable) errorPoints(joins int, xmin float64) errPoints {
	var points errPoints
	for i, category := range t.Categories {
		cell, ok := t.Cells[category][joins]
		if !ok {
			continue
		}
		points.XYs = append(points.XYs, plotter.XY{X: xmin + float64(i), Y: cell.Mean})
		points.YErrors = append(points.YErrors, struct{ Low, High float64 }{Low: cell.MAD, High: cell.MAD})
	}
	return points
}

const (
	figureWidth  = 15 * vg.Inch
	figureHeight = 7 * vg.Inch
	groupWidth   = 0.8
)

// Render draws grouped bars of the mean with MAD error bars on a log scale.
func (t PivotTable) Render() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = t.Dimension.Title()
	p.X.Label.Text = t.Dimension.XLabel()
	p.Y.Label.Text = "Mean Value (Seconds) log scale"
	p.Y.Scale = floorLogScale{Floor: logFloor}
	p.Y.Tick.Marker = plot.LogTicks{}
	p.Legend.Top = true

	step := groupWidth / float64(len(t.Joins))
	barWidth := figureWidth * 0.85 / vg.Length(len(t.Categories)) * vg.Length(step)
	for j, joins := range t.Joins {
		values := make(plotter.Values, len(t.Categories))
		for i, category := range t.Categories {
			values[i] = t.Cells[category][joins].Mean
		}
		xmin := -groupWidth/2 + step*(float64(j)+0.5)
		points := t.errorPoints(joins, xmin)

		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, fmt.Errorf("bars for %v: %w", joinsLabel(joins), err)
		}
		bars.XMin = xmin
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(j)

		errs, err := plotter.NewYErrorBars(points)
		if err != nil {
			return nil, fmt.Errorf("error bars for %v: %w", joinsLabel(joins), err)
		}
		errs.CapWidth = vg.Points(4)

		p.Add(bars, errs)
		p.Legend.Add(joinsLabel(joins), bars)
	}

	p.NominalX(t.Categories...)
	p.X.Min = -0.5
	p.X.Max = float64(len(t.Categories)) - 0.5
	p.Y.Min = logFloor
	if p.Y.Max <= logFloor {
		p.Y.Max = 1
	}
	return p, nil
}

// PlotResults renders one chart per dimension from the CSV at input into outDir.
func PlotResults(input string, outDir string, format string) ([]string, error) {
	results, err := ReadResults(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	files := make([]string, 0, 2)
	for _, dimension := range []Dimension{DimensionThreads, DimensionMemory} {
		table, err := Pivot(results, dimension)
		if err != nil {
			Logger.Warnf("skip %v chart: %v", dimension, err)
			continue
		}
		p, err := table.Render()
		if err != nil {
			return nil, fmt.Errorf("failed to render %v chart: %w", dimension, err)
		}
		file := filepath.Join(outDir, fmt.Sprintf("%v.%v", dimension, format))
		if err := p.Save(figureWidth, figureHeight, file); err != nil {
			return nil, fmt.Errorf("failed to save %v: %w", file, err)
		}
		Logger.Infof("saved %v chart to %v", dimension, file)
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("nothing to plot in %v", input)
	}
	return files, nil
}
