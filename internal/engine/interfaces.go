package engine

import (
	"context"

	"github.com/Veraticus/heartline/internal/inference"
	"github.com/Veraticus/heartline/internal/model"
)

// Predictor is the probability source the analyzer consults.
type Predictor = inference.ProbabilitySource

// Recorder persists completed analyses.
type Recorder interface {
	SaveAnalysis(ctx context.Context, analysis *model.Analysis) error
	SaveAnalyses(ctx context.Context, analyses []model.Analysis) error
}
