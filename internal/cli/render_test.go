package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
)

func TestRenderDecision(t *testing.T) {
	label := 1
	out := RenderDecision(model.Analysis{
		Source:      "/data/ptbdb_abnormal.csv",
		Row:         12,
		Probability: 0.85,
		TrueLabel:   &label,
		Decision:    model.ClinicalDecision{Label: model.LabelAbnormal, Confidence: 0.85, Color: model.ColorRed},
	})

	assert.Contains(t, out, "Abnormal ECG")
	assert.Contains(t, out, "85.00%")
	assert.Contains(t, out, "0.8500")
	assert.Contains(t, out, "ptbdb_abnormal.csv row 12")
	assert.Contains(t, out, "Recorded label: abnormal")
}

func TestRenderDecision_Uncertain(t *testing.T) {
	out := RenderDecision(model.Analysis{
		Source:   "beats.csv",
		Decision: model.ClinicalDecision{Label: model.LabelUncertain, Confidence: 0.96, Color: model.ColorOrange},
	})
	assert.Contains(t, out, "Uncertain")
	assert.NotContains(t, out, "Recorded label")
}

func TestRenderHistory(t *testing.T) {
	assert.Contains(t, RenderHistory(nil), "No analyses")

	out := RenderHistory([]model.Analysis{{
		AnalyzedAt:  time.Date(2025, 1, 2, 3, 4, 0, 0, time.Local),
		Source:      "/tmp/beats.csv",
		Row:         4,
		Probability: 0.1,
		Decision:    model.ClinicalDecision{Label: model.LabelNormal, Confidence: 0.9, Color: model.ColorGreen},
	}})
	assert.Contains(t, out, "DECISION")
	assert.Contains(t, out, "beats.csv")
	assert.Contains(t, out, "NORMAL")
	assert.Contains(t, out, "90.0%")
	assert.Contains(t, out, "2025-01-02 03:04")
}

func TestRenderSummaries(t *testing.T) {
	out := RenderBatchSummary("beats.csv", map[model.DecisionLabel]int{model.LabelAbnormal: 1, model.LabelNormal: 3}, 4)
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "4 rows from beats.csv")

	out = RenderSummary(&service.AnalysisSummary{
		ByLabel:         map[model.DecisionLabel]int{model.LabelNormal: 2},
		Total:           2,
		Labeled:         2,
		Agreements:      1,
		MeanProbability: 0.2,
	})
	assert.Contains(t, out, "Total analyses:   2")
	assert.Contains(t, out, "50.0% (1/2)")
}
