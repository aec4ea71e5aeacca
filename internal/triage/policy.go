// Package triage maps an abnormal probability to a clinical decision.
//
// Decide is a pure function: it holds no state, performs no I/O and is safe
// for concurrent use. Callers validate probabilities with CheckProbability
// before calling it.
package triage

import (
	"fmt"
	"math"

	"github.com/Veraticus/heartline/internal/model"
)

// PreconditionViolation is returned by CheckProbability for values that must
// never reach Decide.
type PreconditionViolation struct {
	Probability float64
}

func (e *PreconditionViolation) Error() string {
	return fmt.Sprintf("probability %v outside [0, 1]", e.Probability)
}

// CheckProbability verifies the caller-side precondition of Decide.
func CheckProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &PreconditionViolation{Probability: p}
	}
	return nil
}

// Decide classifies p into ABNORMAL, UNCERTAIN or NORMAL.
//
// The abnormal check runs first, so it wins wherever the abnormal region
// and the uncertain band overlap. Both bounds are strict: p equal to the
// abnormal threshold or to a band edge falls through to the next branch.
func Decide(p float64, thresholds model.ClinicalThresholds) model.ClinicalDecision {
	if p > thresholds.AbnormalThreshold() {
		return model.ClinicalDecision{
			Label:      model.LabelAbnormal,
			Confidence: p,
			Color:      model.ColorRed,
		}
	}

	low, high := thresholds.UncertainBand()
	if low < p && p < high {
		return model.ClinicalDecision{
			Label:      model.LabelUncertain,
			Confidence: 2 * math.Min(p, 1-p),
			Color:      model.ColorOrange,
		}
	}

	return model.ClinicalDecision{
		Label:      model.LabelNormal,
		Confidence: 1 - p,
		Color:      model.ColorGreen,
	}
}
