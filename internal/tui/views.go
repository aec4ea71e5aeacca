package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/heartline/internal/cli"
)

const (
	appTitle   = "ECG Classification System"
	plotHeight = 10
	minPlot    = 20
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.config.Theme.Title.Render(appTitle),
		m.renderUpload(),
	}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, status)
	}
	sections = append(sections, m.renderResults(), m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderUpload() string {
	theme := m.config.Theme

	rows := []string{
		theme.Subtitle.Render("Upload ECG Data"),
		lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render("CSV File:"), m.pathInput.View()),
		lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render("Row:"), m.rowInput.View()),
	}
	if m.table != nil {
		rows = append(rows, theme.Placeholder.Render(
			fmt.Sprintf("%s: %d rows", m.tablePath, m.table.Len())))
	}

	return theme.FocusPanel.Width(m.panelWidth()).Render(strings.Join(rows, "\n"))
}

func (m Model) renderStatus() string {
	theme := m.config.Theme
	switch {
	case m.warning != "":
		return theme.Warning.Render("Warning: " + m.warning)
	case m.err != nil:
		return theme.Error.Render("Failed to analyze ECG: " + m.err.Error())
	default:
		return ""
	}
}

func (m Model) renderResults() string {
	theme := m.config.Theme

	var body string
	switch {
	case m.busy:
		body = theme.Placeholder.Render("Analyzing...")
	case m.analysis == nil:
		body = theme.Placeholder.Render("Results will appear here")
	default:
		plotWidth := m.panelWidth() - 16
		if plotWidth < minPlot {
			plotWidth = minPlot
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			cli.RenderDecision(*m.analysis),
			"",
			cli.PlotWaveform(cli.Head(m.analysis.Normalized, cli.PlotSamples), plotWidth, plotHeight),
		)
	}

	return theme.Panel.Width(m.panelWidth()).Render(
		theme.Subtitle.Render("Results") + "\n" + body)
}

func (m Model) panelWidth() int {
	if m.width <= 4 {
		return minPlot
	}
	return m.width - 4
}
