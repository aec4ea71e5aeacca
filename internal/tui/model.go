package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/heartline/internal/config"
	"github.com/Veraticus/heartline/internal/dataset"
	"github.com/Veraticus/heartline/internal/model"
)

type field int

const (
	fieldPath field = iota
	fieldRow
	fieldCount
)

// analysisDoneMsg carries the outcome of one background analysis.
type analysisDoneMsg struct {
	err      error
	analysis *model.Analysis
	table    *dataset.Table
	path     string
}

// Model holds the TUI state.
type Model struct {
	ctx       context.Context
	err       error
	analysis  *model.Analysis
	table     *dataset.Table
	tablePath string
	warning   string
	config    Config
	keymap    KeyMap
	help      help.Model
	pathInput textinput.Model
	rowInput  textinput.Model
	focus     field
	width     int
	height    int
	busy      bool
	quitting  bool
}

func newModel(ctx context.Context, cfg Config) Model {
	path := textinput.New()
	path.Placeholder = "path/to/ecg.csv"
	path.Prompt = ""
	path.CharLimit = 4096
	path.SetValue(cfg.Path)
	path.Focus()

	row := textinput.New()
	row.Placeholder = "0"
	row.Prompt = ""
	row.CharLimit = 9
	row.SetValue(strconv.Itoa(cfg.Row))

	h := help.New()
	h.Width = cfg.Width

	return Model{
		ctx:       ctx,
		config:    cfg,
		keymap:    DefaultKeyMap(),
		help:      h,
		pathInput: path,
		rowInput:  row,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keymap.NextField):
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case key.Matches(msg, m.keymap.PrevField):
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		case key.Matches(msg, m.keymap.Analyze):
			return m.startAnalysis()
		case key.Matches(msg, m.keymap.NextRow):
			return m.stepRow(1)
		case key.Matches(msg, m.keymap.PrevRow):
			return m.stepRow(-1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case analysisDoneMsg:
		m.busy = false
		if msg.table != nil {
			m.table = msg.table
			m.tablePath = msg.path
		}
		if msg.err != nil {
			m.err = msg.err
			m.analysis = nil
			return m, nil
		}
		m.err = nil
		m.analysis = msg.analysis
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == fieldPath {
		m.pathInput, cmd = m.pathInput.Update(msg)
	} else {
		m.rowInput, cmd = m.rowInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	if f == fieldPath {
		m.rowInput.Blur()
		return m.pathInput.Focus()
	}
	m.pathInput.Blur()
	return m.rowInput.Focus()
}

// startAnalysis validates the inputs and schedules an analysis.
func (m Model) startAnalysis() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	path := strings.TrimSpace(m.pathInput.Value())
	if path == "" {
		m.warning = "Please select a CSV file first"
		return m, nil
	}

	row, ok := m.currentRow()
	if !ok {
		m.warning = "Row must be a non-negative integer"
		return m, nil
	}

	m.warning = ""
	m.busy = true
	return m, m.analyze(path, row)
}

func (m Model) stepRow(delta int) (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		row = 0
	}
	row += delta
	if row < 0 {
		row = 0
	}
	if m.table != nil && m.tablePath == strings.TrimSpace(m.pathInput.Value()) && row >= m.table.Len() {
		row = m.table.Len() - 1
	}
	m.rowInput.SetValue(strconv.Itoa(row))
	return m.startAnalysis()
}

func (m Model) currentRow() (int, bool) {
	raw := strings.TrimSpace(m.rowInput.Value())
	if raw == "" {
		return 0, true
	}
	row, err := strconv.Atoi(raw)
	if err != nil || row < 0 {
		return 0, false
	}
	return row, true
}

// analyze loads the file (reusing the cached table for the same path) and
// runs one row through the analyzer off the UI goroutine.
func (m Model) analyze(path string, row int) tea.Cmd {
	ctx := m.ctx
	analyzer := m.config.Analyzer
	featureCount := m.config.FeatureCount

	var cached *dataset.Table
	if m.table != nil && m.tablePath == path {
		cached = m.table
	}

	return func() tea.Msg {
		table := cached
		if table == nil {
			loaded, err := dataset.Load(config.ExpandPath(path), featureCount)
			if err != nil {
				return analysisDoneMsg{path: path, err: err}
			}
			table = loaded
		}

		sample, err := table.Sample(row)
		if err != nil {
			return analysisDoneMsg{path: path, table: table, err: err}
		}

		analysis, err := analyzer.Analyze(ctx, sample)
		return analysisDoneMsg{path: path, table: table, analysis: analysis, err: err}
	}
}
