package model

import "time"

// Analysis is one completed inference: the probability for a sample, the
// decision derived from it, and the thresholds used.
type Analysis struct {
	AnalyzedAt        time.Time
	TrueLabel         *int
	Decision          ClinicalDecision
	ID                string
	Source            string
	Normalized        []float64
	Row               int
	Probability       float64
	AbnormalThreshold float64
	UncertainMargin   float64
}

// Agrees reports whether a labeled sample's ground truth matches the
// decision. Uncertain decisions and unlabeled samples never agree.
func (a Analysis) Agrees() (agrees bool, known bool) {
	if a.TrueLabel == nil || a.Decision.Label == LabelUncertain {
		return false, false
	}
	predicted := 0
	if a.Decision.Label == LabelAbnormal {
		predicted = 1
	}
	return predicted == *a.TrueLabel, true
}
