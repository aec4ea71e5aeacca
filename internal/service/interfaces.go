// Package service defines the interfaces shared between application layers.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/heartline/internal/model"
)

// AnalysisFilter narrows history queries. Zero values disable a filter.
type AnalysisFilter struct {
	Since  *time.Time
	Label  model.DecisionLabel
	Source string
	Limit  int
}

// AnalysisSummary aggregates stored analyses.
type AnalysisSummary struct {
	ByLabel         map[model.DecisionLabel]int
	Total           int
	Labeled         int
	Agreements      int
	MeanProbability float64
}

// Accuracy returns the share of labeled, non-uncertain analyses whose
// decision matched ground truth.
func (s AnalysisSummary) Accuracy() (float64, bool) {
	if s.Labeled == 0 {
		return 0, false
	}
	return float64(s.Agreements) / float64(s.Labeled), true
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Analysis operations
	SaveAnalysis(ctx context.Context, analysis *model.Analysis) error
	SaveAnalyses(ctx context.Context, analyses []model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)
	SummarizeAnalyses(ctx context.Context, filter AnalysisFilter) (*AnalysisSummary, error)
	DeleteAnalysesBefore(ctx context.Context, before time.Time) (int64, error)

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}
