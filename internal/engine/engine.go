// Package engine runs samples through a predictor and the clinical decision
// policy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
	"github.com/Veraticus/heartline/internal/triage"
)

// Analyzer orchestrates prediction, decision and optional persistence.
// It holds no mutable state and may be shared between goroutines.
type Analyzer struct {
	predictor  Predictor
	recorder   Recorder
	now        func() time.Time
	newID      func() string
	thresholds model.ClinicalThresholds
	workers    int
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithRecorder saves every analysis through r.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		a.recorder = r
	}
}

// WithWorkers bounds the number of concurrent predictions in AnalyzeBatch.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithIDGenerator overrides how analysis IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(a *Analyzer) {
		a.newID = newID
	}
}

// DefaultWorkers is the batch concurrency used when none is configured.
const DefaultWorkers = 4

// New creates an analyzer. thresholds must come from
// model.NewClinicalThresholds or model.DefaultThresholds.
func New(predictor Predictor, thresholds model.ClinicalThresholds, opts ...Option) (*Analyzer, error) {
	if predictor == nil {
		return nil, fmt.Errorf("%w: predictor is required", common.ErrMissingConfig)
	}
	if thresholds.IsZero() {
		return nil, fmt.Errorf("%w: thresholds are not initialized", common.ErrInvalidConfig)
	}

	a := &Analyzer{
		predictor:  predictor,
		thresholds: thresholds,
		workers:    DefaultWorkers,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Thresholds returns the thresholds the analyzer decides with.
func (a *Analyzer) Thresholds() model.ClinicalThresholds {
	return a.thresholds
}

// Analyze predicts, decides and (when a recorder is set) stores one sample.
func (a *Analyzer) Analyze(ctx context.Context, sample model.Sample) (*model.Analysis, error) {
	analysis, err := a.evaluate(ctx, sample)
	if err != nil {
		return nil, err
	}

	if a.recorder != nil {
		if err := a.recorder.SaveAnalysis(ctx, analysis); err != nil {
			return nil, fmt.Errorf("failed to record analysis: %w", err)
		}
	}

	slog.Debug("Analyzed sample",
		"source", sample.Source,
		"row", sample.Row,
		"probability", analysis.Probability,
		"label", analysis.Decision.Label)

	return analysis, nil
}

// AnalyzeBatch analyzes samples concurrently and returns results in input
// order. onDone, if set, is called once per finished sample from worker
// goroutines. The first failure cancels the remaining work.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, samples []model.Sample, onDone func(model.Analysis)) ([]model.Analysis, error) {
	if len(samples) == 0 {
		return nil, common.ErrNoSamples
	}

	results := make([]model.Analysis, len(samples))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range samples {
		i := i
		g.Go(func() error {
			analysis, err := a.evaluate(gCtx, samples[i])
			if err != nil {
				return fmt.Errorf("row %d: %w", samples[i].Row, err)
			}
			results[i] = *analysis
			if onDone != nil {
				onDone(*analysis)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if a.recorder != nil {
		if err := a.recorder.SaveAnalyses(ctx, results); err != nil {
			return nil, fmt.Errorf("failed to record analyses: %w", err)
		}
	}

	slog.Info("Analyzed batch", "samples", len(results), "workers", a.workers)
	return results, nil
}

func (a *Analyzer) evaluate(ctx context.Context, sample model.Sample) (*model.Analysis, error) {
	if len(sample.Features) == 0 {
		return nil, fmt.Errorf("%w: sample has no features", common.ErrInvalidInput)
	}

	pred, err := a.predictor.Predict(ctx, sample.Features)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	if err := triage.CheckProbability(pred.Probability); err != nil {
		return nil, fmt.Errorf("predictor broke its contract: %w", err)
	}

	return &model.Analysis{
		ID:                a.newID(),
		Source:            sample.Source,
		Row:               sample.Row,
		TrueLabel:         sample.Label,
		Normalized:        pred.Normalized,
		Probability:       pred.Probability,
		Decision:          triage.Decide(pred.Probability, a.thresholds),
		AbnormalThreshold: a.thresholds.AbnormalThreshold(),
		UncertainMargin:   a.thresholds.UncertainMargin(),
		AnalyzedAt:        a.now(),
	}, nil
}

// Tally counts decisions in a batch of analyses.
func Tally(analyses []model.Analysis) map[model.DecisionLabel]int {
	counts := make(map[model.DecisionLabel]int, len(model.AllLabels))
	for _, a := range analyses {
		counts[a.Decision.Label]++
	}
	return counts
}

// Summarize aggregates a batch the same way stored history is summarized.
func Summarize(analyses []model.Analysis) *service.AnalysisSummary {
	summary := &service.AnalysisSummary{ByLabel: Tally(analyses), Total: len(analyses)}
	if len(analyses) == 0 {
		return summary
	}

	var sum float64
	for _, a := range analyses {
		sum += a.Probability
		agrees, known := a.Agrees()
		if !known {
			continue
		}
		summary.Labeled++
		if agrees {
			summary.Agreements++
		}
	}
	summary.MeanProbability = sum / float64(len(analyses))
	return summary
}

// IsInputError reports whether err came from a bad sample rather than a
// broken model or storage.
func IsInputError(err error) bool {
	return errors.Is(err, common.ErrInvalidInput)
}
