package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/model"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beats.csv")
	content := "0.1,0.2,0.3,1\n0.9,0.8,0.7,0\n0.5,0.5,0.5,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestModel(t *testing.T, opts ...Option) Model {
	t.Helper()
	predictor := &engine.MockPredictor{
		Probability: 0.5,
		ByFirst:     map[float64]float64{0.1: 0.85, 0.9: 0.1},
	}
	analyzer, err := engine.New(predictor, model.DefaultThresholds())
	require.NoError(t, err)

	cfg := defaultConfig()
	for _, opt := range append([]Option{WithAnalyzer(analyzer), WithFeatureCount(3)}, opts...) {
		opt(&cfg)
	}
	return newModel(context.Background(), cfg)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// press sends a key and, when it schedules work, feeds the result back.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := update(t, m, k)
	if cmd == nil {
		return m
	}
	if done, ok := cmd().(analysisDoneMsg); ok {
		m, _ = update(t, m, done)
	}
	return m
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestAnalyze_RequiresPath(t *testing.T) {
	m := newTestModel(t)

	m, cmd := update(t, m, enter)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Please select a CSV file first")
	assert.Contains(t, m.View(), "Results will appear here")
}

func TestAnalyze_ShowsDecisionAndPlot(t *testing.T) {
	m := newTestModel(t, WithPath(writeCSV(t)))

	m = press(t, m, enter)
	require.NotNil(t, m.analysis)
	assert.Equal(t, model.LabelAbnormal, m.analysis.Decision.Label)

	view := m.View()
	assert.Contains(t, view, "Abnormal ECG")
	assert.Contains(t, view, "ECG Signal (First 100 Samples)")
	assert.Contains(t, view, "3 rows")
}

func TestStepRow(t *testing.T) {
	m := newTestModel(t, WithPath(writeCSV(t)))
	m = press(t, m, enter)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "1", m.rowInput.Value())
	require.NotNil(t, m.analysis)
	assert.Equal(t, model.LabelNormal, m.analysis.Decision.Label)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "2", m.rowInput.Value(), "clamped to the last row")
	assert.Equal(t, model.LabelUncertain, m.analysis.Decision.Label)

	for range 4 {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	}
	assert.Equal(t, "0", m.rowInput.Value())
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		m := newTestModel(t, WithPath(filepath.Join(t.TempDir(), "nope.csv")))
		m = press(t, m, enter)
		assert.Nil(t, m.analysis)
		assert.Contains(t, m.View(), "Failed to analyze ECG")
	})

	t.Run("row out of range", func(t *testing.T) {
		m := newTestModel(t, WithPath(writeCSV(t)), WithRow(7))
		m = press(t, m, enter)
		assert.Error(t, m.err)
		assert.NotNil(t, m.table, "table is cached even when the row is bad")
	})

	t.Run("bad row text", func(t *testing.T) {
		m := newTestModel(t, WithPath(writeCSV(t)))
		m.rowInput.SetValue("abc")
		m, cmd := update(t, m, enter)
		assert.Nil(t, cmd)
		assert.Contains(t, m.View(), "Row must be a non-negative integer")
	})
}

func TestFocusAndTyping(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, fieldPath, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a.csv")})
	assert.Equal(t, "a.csv", m.pathInput.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldRow, m.focus)
	m.rowInput.SetValue("")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("12")})
	assert.Equal(t, "12", m.rowInput.Value())
	assert.Equal(t, "a.csv", m.pathInput.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldPath, m.focus)
}

func TestQuitAndHelp(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.True(t, m.help.ShowAll)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestRun_RequiresAnalyzer(t *testing.T) {
	assert.Error(t, Run(context.Background()))
}
