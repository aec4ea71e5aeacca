package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
)

// RenderDecision renders a single analysis result as a boxed summary.
func RenderDecision(a model.Analysis) string {
	style := DecisionStyle(a.Decision.Color)

	lines := []string{
		fmt.Sprintf("Result:      %s", style.Render(resultText(a.Decision.Label))),
		fmt.Sprintf("Confidence:  %.2f%%", a.Decision.Confidence*100),
		fmt.Sprintf("P(abnormal): %.4f", a.Probability),
		SubtleStyle.Render(fmt.Sprintf("%s row %d", filepath.Base(a.Source), a.Row)),
	}
	if a.TrueLabel != nil {
		truth := "normal"
		if *a.TrueLabel == 1 {
			truth = "abnormal"
		}
		lines = append(lines, SubtleStyle.Render("Recorded label: "+truth))
	}

	return RenderBox("ECG Analysis", strings.Join(lines, "\n"))
}

func resultText(label model.DecisionLabel) string {
	switch label {
	case model.LabelAbnormal:
		return "Abnormal ECG"
	case model.LabelUncertain:
		return "Uncertain - review recommended"
	default:
		return "Normal ECG"
	}
}

// RenderBatchSummary renders decision counts for a batch run.
func RenderBatchSummary(source string, counts map[model.DecisionLabel]int, total int) string {
	var lines []string
	for _, label := range model.AllLabels {
		tag := colorFor(label)
		share := 0.0
		if total > 0 {
			share = float64(counts[label]) / float64(total) * 100
		}
		lines = append(lines, fmt.Sprintf("%-10s %5d  (%5.1f%%)",
			DecisionStyle(tag).Render(string(label)), counts[label], share))
	}
	lines = append(lines, SubtleStyle.Render(fmt.Sprintf("%d rows from %s", total, filepath.Base(source))))
	return RenderBox(ChartIcon+" Batch Summary", strings.Join(lines, "\n"))
}

// RenderHistory renders stored analyses as a table.
func RenderHistory(analyses []model.Analysis) string {
	if len(analyses) == 0 {
		return SubtleStyle.Render("No analyses recorded yet.")
	}

	headers := []string{"WHEN", "SOURCE", "ROW", "P(ABN)", "DECISION", "CONF"}
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		rows = append(rows, []string{
			a.AnalyzedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(a.Source),
			fmt.Sprintf("%d", a.Row),
			fmt.Sprintf("%.3f", a.Probability),
			string(a.Decision.Label),
			fmt.Sprintf("%.1f%%", a.Decision.Confidence*100),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = TableCellStyle.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, headerCells...)))
	b.WriteString("\n")

	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := TableCellStyle.Width(widths[i] + 2)
			if i == 4 {
				style = style.Inherit(DecisionStyle(analyses[r].Decision.Color))
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary renders aggregate history statistics.
func RenderSummary(s *service.AnalysisSummary) string {
	labels := make([]model.DecisionLabel, 0, len(s.ByLabel))
	for l := range s.ByLabel {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	lines := []string{fmt.Sprintf("Total analyses:   %d", s.Total)}
	for _, l := range labels {
		lines = append(lines, fmt.Sprintf("  %-10s %d", DecisionStyle(colorFor(l)).Render(string(l)), s.ByLabel[l]))
	}
	lines = append(lines, fmt.Sprintf("Mean P(abnormal): %.3f", s.MeanProbability))
	if acc, ok := s.Accuracy(); ok {
		lines = append(lines, fmt.Sprintf("Agreement with recorded labels: %.1f%% (%d/%d)", acc*100, s.Agreements, s.Labeled))
	}
	return RenderBox(ChartIcon+" History", strings.Join(lines, "\n"))
}

func colorFor(label model.DecisionLabel) model.ColorTag {
	switch label {
	case model.LabelAbnormal:
		return model.ColorRed
	case model.LabelUncertain:
		return model.ColorOrange
	default:
		return model.ColorGreen
	}
}
