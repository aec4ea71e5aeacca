package testutil

import (
	"time"

	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/triage"
)

// BaseTime is the default timestamp for built analyses.
var BaseTime = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// AnalysisBuilder builds analyses whose decision always matches their
// probability under the configured thresholds.
type AnalysisBuilder struct {
	analysis   model.Analysis
	thresholds model.ClinicalThresholds
}

// NewAnalysis starts a builder for an analysis with the given ID.
func NewAnalysis(id string) *AnalysisBuilder {
	return &AnalysisBuilder{
		analysis: model.Analysis{
			ID:         id,
			Source:     "fixture.csv",
			AnalyzedAt: BaseTime,
		},
		thresholds: model.DefaultThresholds(),
	}
}

// WithProbability sets P(abnormal).
func (b *AnalysisBuilder) WithProbability(p float64) *AnalysisBuilder {
	b.analysis.Probability = p
	return b
}

// WithThresholds decides with t instead of the defaults.
func (b *AnalysisBuilder) WithThresholds(t model.ClinicalThresholds) *AnalysisBuilder {
	b.thresholds = t
	return b
}

// FromSource sets the source file and row.
func (b *AnalysisBuilder) FromSource(source string, row int) *AnalysisBuilder {
	b.analysis.Source = source
	b.analysis.Row = row
	return b
}

// Labeled records a ground-truth label.
func (b *AnalysisBuilder) Labeled(label int) *AnalysisBuilder {
	b.analysis.TrueLabel = &label
	return b
}

// At sets the analysis time.
func (b *AnalysisBuilder) At(t time.Time) *AnalysisBuilder {
	b.analysis.AnalyzedAt = t
	return b
}

// Build returns the analysis with its decision filled in.
func (b *AnalysisBuilder) Build() model.Analysis {
	a := b.analysis
	a.Decision = triage.Decide(a.Probability, b.thresholds)
	a.AbnormalThreshold = b.thresholds.AbnormalThreshold()
	a.UncertainMargin = b.thresholds.UncertainMargin()
	return a
}
