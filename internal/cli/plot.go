package cli

import (
	"fmt"
	"math"
	"strings"
)

// PlotSamples is how many leading samples the waveform plot shows.
const PlotSamples = 100

// PlotTitle heads every waveform plot.
const PlotTitle = "ECG Signal (First 100 Samples)"

// PlotWaveform draws values as a terminal line chart of the given size.
// When there are more values than columns, each column shows the mean of
// its bucket. Vertical runs between neighboring columns are filled so the
// trace reads as a continuous line.
func PlotWaveform(values []float64, width, height int) string {
	if len(values) == 0 || width < 2 || height < 2 {
		return ""
	}

	cols := resample(values, width)
	lo, hi := bounds(cols)
	grid := newGrid(len(cols), height)
	grid.trace(cols, lo, hi, '•')

	footer := fmt.Sprintf("time → (%d samples, amplitude normalized)", len(values))
	return grid.render(PlotTitle, lo, hi, footer)
}

// HistoryTitle heads the training history chart.
const HistoryTitle = "Model Accuracy"

// PlotHistory charts training and validation accuracy per epoch, the
// training series as • and the validation series as ◦.
func PlotHistory(train, validation []float64, width, height int) string {
	if len(train) == 0 || len(train) != len(validation) || width < 2 || height < 2 {
		return ""
	}

	trainCols := resample(train, width)
	valCols := resample(validation, width)
	lo, hi := bounds(append(append([]float64{}, trainCols...), valCols...))

	grid := newGrid(len(trainCols), height)
	grid.trace(valCols, lo, hi, '◦')
	grid.trace(trainCols, lo, hi, '•')

	footer := fmt.Sprintf("epoch → (%d epochs)  • train  ◦ validation", len(train))
	return grid.render(HistoryTitle, lo, hi, footer)
}

type grid [][]rune

func newGrid(width, height int) grid {
	g := make(grid, height)
	for r := range g {
		g[r] = []rune(strings.Repeat(" ", width))
	}
	return g
}

// trace marks one series. Marks overwrite earlier series; fill runs only
// take blank cells.
func (g grid) trace(cols []float64, lo, hi float64, mark rune) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	height := len(g)
	rowOf := func(v float64) int {
		return int(math.Round((hi - v) / span * float64(height-1)))
	}

	prev := -1
	for c, v := range cols {
		r := rowOf(v)
		if prev >= 0 && absInt(r-prev) > 1 {
			from, to := prev, r
			if from > to {
				from, to = to, from
			}
			for fill := from + 1; fill < to; fill++ {
				if g[fill][c] == ' ' {
					g[fill][c] = '│'
				}
			}
		}
		g[r][c] = mark
		prev = r
	}
}

func (g grid) render(title string, lo, hi float64, footer string) string {
	height := len(g)
	var b strings.Builder
	b.WriteString(BoldStyle.Render(title))
	b.WriteString("\n")
	for r, line := range g {
		label := ""
		switch r {
		case 0:
			label = fmt.Sprintf("%7.2f", hi)
		case height - 1:
			label = fmt.Sprintf("%7.2f", lo)
		case (height - 1) / 2:
			label = fmt.Sprintf("%7.2f", (hi+lo)/2)
		}
		fmt.Fprintf(&b, "%7s ┤%s\n", label, TraceStyle.Render(string(line)))
	}
	fmt.Fprintf(&b, "%7s └%s\n", "", strings.Repeat("─", len(g[0])))
	fmt.Fprintf(&b, "%9s%s\n", "", SubtleStyle.Render(footer))
	return b.String()
}

// Head returns at most n leading values.
func Head(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func resample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for c := range out {
		start := c * len(values) / width
		end := (c + 1) * len(values) / width
		sum := 0.0
		for _, v := range values[start:end] {
			sum += v
		}
		out[c] = sum / float64(end-start)
	}
	return out
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
