package model

import (
	"fmt"
	"math"

	"github.com/Veraticus/heartline/internal/common"
)

// Default threshold values.
const (
	DefaultAbnormalThreshold = 0.7
	DefaultUncertainMargin   = 0.1
)

// ConfigurationError reports a threshold value outside its allowed range.
type ConfigurationError struct {
	Field  string
	Reason string
	Value  float64
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers match the error against common.ErrInvalidConfig.
func (e *ConfigurationError) Unwrap() error {
	return common.ErrInvalidConfig
}

// ClinicalThresholds configures the clinical decision policy. The zero value
// is not valid; build one with NewClinicalThresholds or DefaultThresholds.
type ClinicalThresholds struct {
	abnormalThreshold float64
	uncertainMargin   float64
}

// NewClinicalThresholds validates and returns a threshold pair.
// abnormal must lie in (0, 1] and margin in [0, 1).
func NewClinicalThresholds(abnormal, margin float64) (ClinicalThresholds, error) {
	if math.IsNaN(abnormal) || abnormal <= 0 || abnormal > 1 {
		return ClinicalThresholds{}, &ConfigurationError{
			Field:  "abnormal_threshold",
			Value:  abnormal,
			Reason: "must be in (0, 1]",
		}
	}
	if math.IsNaN(margin) || margin < 0 || margin >= 1 {
		return ClinicalThresholds{}, &ConfigurationError{
			Field:  "uncertain_margin",
			Value:  margin,
			Reason: "must be in [0, 1)",
		}
	}
	return ClinicalThresholds{
		abnormalThreshold: abnormal,
		uncertainMargin:   margin,
	}, nil
}

// DefaultThresholds returns abnormal_threshold=0.7, uncertain_margin=0.1.
func DefaultThresholds() ClinicalThresholds {
	return ClinicalThresholds{
		abnormalThreshold: DefaultAbnormalThreshold,
		uncertainMargin:   DefaultUncertainMargin,
	}
}

// AbnormalThreshold is the probability above which a sample is abnormal.
func (t ClinicalThresholds) AbnormalThreshold() float64 {
	return t.abnormalThreshold
}

// UncertainMargin is the full width of the uncertain band centered on 0.5.
func (t ClinicalThresholds) UncertainMargin() float64 {
	return t.uncertainMargin
}

// UncertainBand returns the open interval treated as clinically uncertain.
func (t ClinicalThresholds) UncertainBand() (low, high float64) {
	half := t.uncertainMargin / 2
	return 0.5 - half, 0.5 + half
}

// IsZero reports whether t was never initialized.
func (t ClinicalThresholds) IsZero() bool {
	return t.abnormalThreshold == 0
}

func (t ClinicalThresholds) String() string {
	return fmt.Sprintf("abnormal>%.2f uncertain±%.2f", t.abnormalThreshold, t.uncertainMargin/2)
}
