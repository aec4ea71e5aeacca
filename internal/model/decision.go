// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// DecisionLabel is the human-facing triage label.
type DecisionLabel string

// Decision labels.
const (
	LabelAbnormal  DecisionLabel = "ABNORMAL"
	LabelUncertain DecisionLabel = "UNCERTAIN"
	LabelNormal    DecisionLabel = "NORMAL"
)

// ColorTag is a presentation hint attached to a decision.
type ColorTag string

// Color tags.
const (
	ColorRed    ColorTag = "RED"
	ColorOrange ColorTag = "ORANGE"
	ColorGreen  ColorTag = "GREEN"
)

// AllLabels lists every decision label in severity order.
var AllLabels = []DecisionLabel{LabelAbnormal, LabelUncertain, LabelNormal}

// ParseDecisionLabel converts user input into a DecisionLabel.
func ParseDecisionLabel(s string) (DecisionLabel, error) {
	switch DecisionLabel(s) {
	case LabelAbnormal, LabelUncertain, LabelNormal:
		return DecisionLabel(s), nil
	}
	switch s {
	case "abnormal":
		return LabelAbnormal, nil
	case "uncertain":
		return LabelUncertain, nil
	case "normal":
		return LabelNormal, nil
	}
	return "", fmt.Errorf("unknown decision label %q", s)
}

// Valid reports whether the label is one of the known variants.
func (l DecisionLabel) Valid() bool {
	return l == LabelAbnormal || l == LabelUncertain || l == LabelNormal
}

// Valid reports whether the color tag is one of the known variants.
func (c ColorTag) Valid() bool {
	return c == ColorRed || c == ColorOrange || c == ColorGreen
}

// ClinicalDecision is the output of the decision policy for one probability.
type ClinicalDecision struct {
	Label      DecisionLabel `json:"label" yaml:"label"`
	Color      ColorTag      `json:"color" yaml:"color"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
}

func (d ClinicalDecision) String() string {
	return fmt.Sprintf("%s (%.2f%% confidence)", d.Label, d.Confidence*100)
}
