package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/heartline/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidAnalysis  = errors.New("invalid analysis")
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidLabelName = errors.New("invalid decision label")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateAnalysis(a *model.Analysis) error {
	if a == nil {
		return fmt.Errorf("%w: analysis", ErrNilParameter)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAnalysis)
	}
	if a.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidAnalysis)
	}
	if a.Row < 0 {
		return fmt.Errorf("%w: negative row %d", ErrInvalidAnalysis, a.Row)
	}
	if math.IsNaN(a.Probability) || a.Probability < 0 || a.Probability > 1 {
		return fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidAnalysis, a.Probability)
	}
	if !a.Decision.Label.Valid() {
		return fmt.Errorf("%w: label %q", ErrInvalidAnalysis, a.Decision.Label)
	}
	if !a.Decision.Color.Valid() {
		return fmt.Errorf("%w: color %q", ErrInvalidAnalysis, a.Decision.Color)
	}
	if a.Decision.Confidence < 0 || a.Decision.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidAnalysis, a.Decision.Confidence)
	}
	return nil
}
