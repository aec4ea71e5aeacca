// Package export writes stored analyses in machine-readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/heartline/internal/model"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Record is the exported shape of one analysis.
type Record struct {
	TrueLabel         *int                `json:"true_label,omitempty" yaml:"true_label,omitempty"`
	ID                string              `json:"id" yaml:"id"`
	Source            string              `json:"source" yaml:"source"`
	Label             model.DecisionLabel `json:"label" yaml:"label"`
	Color             model.ColorTag      `json:"color" yaml:"color"`
	AnalyzedAt        string              `json:"analyzed_at" yaml:"analyzed_at"`
	Row               int                 `json:"row" yaml:"row"`
	Probability       float64             `json:"probability" yaml:"probability"`
	Confidence        float64             `json:"confidence" yaml:"confidence"`
	AbnormalThreshold float64             `json:"abnormal_threshold" yaml:"abnormal_threshold"`
	UncertainMargin   float64             `json:"uncertain_margin" yaml:"uncertain_margin"`
}

// ToRecord converts an analysis to its export form.
func ToRecord(a model.Analysis) Record {
	return Record{
		ID:                a.ID,
		Source:            a.Source,
		Row:               a.Row,
		Probability:       a.Probability,
		Label:             a.Decision.Label,
		Confidence:        a.Decision.Confidence,
		Color:             a.Decision.Color,
		TrueLabel:         a.TrueLabel,
		AbnormalThreshold: a.AbnormalThreshold,
		UncertainMargin:   a.UncertainMargin,
		AnalyzedAt:        a.AnalyzedAt.UTC().Format(time.RFC3339),
	}
}

// Write encodes analyses to w in the named format.
func Write(w io.Writer, format string, analyses []model.Analysis) error {
	records := make([]Record, len(analyses))
	for i, a := range analyses {
		records[i] = ToRecord(a)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unsupported export format %q (use json, yaml or csv)", format)
	}
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "source", "row", "probability", "label", "confidence", "color",
		"true_label", "abnormal_threshold", "uncertain_margin", "analyzed_at"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		trueLabel := ""
		if r.TrueLabel != nil {
			trueLabel = strconv.Itoa(*r.TrueLabel)
		}
		row := []string{
			r.ID,
			r.Source,
			strconv.Itoa(r.Row),
			strconv.FormatFloat(r.Probability, 'f', -1, 64),
			string(r.Label),
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
			string(r.Color),
			trueLabel,
			strconv.FormatFloat(r.AbnormalThreshold, 'f', -1, 64),
			strconv.FormatFloat(r.UncertainMargin, 'f', -1, 64),
			r.AnalyzedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
