package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plotRows(out string) []string {
	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "┤") {
			rows = append(rows, line)
		}
	}
	return rows
}

func TestPlotWaveform_Shape(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 3, 2, 1, 0}
	out := PlotWaveform(values, 20, 5)

	assert.Contains(t, out, PlotTitle)
	rows := plotRows(out)
	require.Len(t, rows, 5)

	// The peak sits on the top row, the troughs on the bottom row.
	assert.Contains(t, rows[0], "4.00")
	assert.Contains(t, rows[0], "•")
	assert.Contains(t, rows[4], "0.00")
	assert.Equal(t, 2, strings.Count(rows[4], "•"))
	assert.Contains(t, out, "9 samples")
}

func TestPlotWaveform_FillsSteepJumps(t *testing.T) {
	out := PlotWaveform([]float64{0, 10}, 10, 6)
	assert.Contains(t, out, "│")
}

func TestPlotWaveform_Resamples(t *testing.T) {
	values := make([]float64, 187)
	for i := range values {
		values[i] = float64(i % 10)
	}
	out := PlotWaveform(values, 50, 8)

	for _, row := range plotRows(out) {
		idx := strings.Index(row, "┤")
		assert.LessOrEqual(t, len([]rune(row[idx+len("┤"):])), 50)
	}
}

func TestPlotWaveform_Degenerate(t *testing.T) {
	assert.Empty(t, PlotWaveform(nil, 10, 5))
	assert.Empty(t, PlotWaveform([]float64{1}, 1, 5))

	// A flat line must not divide by zero.
	out := PlotWaveform([]float64{2, 2, 2}, 10, 4)
	assert.Equal(t, 3, strings.Count(out, "•"))
}

func TestHead(t *testing.T) {
	assert.Len(t, Head(make([]float64, 187), PlotSamples), 100)
	assert.Len(t, Head(make([]float64, 10), PlotSamples), 10)
}

func TestPlotHistory(t *testing.T) {
	train := []float64{0.5, 0.7, 0.9, 1.0}
	validation := []float64{0.5, 0.6, 0.7, 0.8}
	out := PlotHistory(train, validation, 40, 6)

	assert.Contains(t, out, HistoryTitle)
	assert.Contains(t, out, "4 epochs")
	rows := plotRows(out)
	require.Len(t, rows, 6)

	// Best training accuracy tops the chart, the shared first epoch sits
	// on the bottom row where the training mark wins.
	assert.Contains(t, rows[0], "1.00")
	assert.Contains(t, rows[0], "•")
	assert.Contains(t, rows[5], "0.50")
	assert.Contains(t, rows[5], "•")
	validationMarks := 0
	for _, row := range rows {
		validationMarks += strings.Count(row, "◦")
	}
	assert.Equal(t, 3, validationMarks, "first validation point is hidden under the training mark")

	assert.Empty(t, PlotHistory(train, validation[:2], 40, 6))
	assert.Empty(t, PlotHistory(nil, nil, 40, 6))
}
