package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/heartline/internal/model"
)

func sampleAnalyses() []model.Analysis {
	label := 0
	return []model.Analysis{
		{
			ID:                "a1",
			Source:            "beats.csv",
			Row:               2,
			Probability:       0.1,
			TrueLabel:         &label,
			Decision:          model.ClinicalDecision{Label: model.LabelNormal, Confidence: 0.9, Color: model.ColorGreen},
			AbnormalThreshold: 0.7,
			UncertainMargin:   0.1,
			AnalyzedAt:        time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC),
		},
		{
			ID:          "a2",
			Source:      "beats.csv",
			Row:         3,
			Probability: 0.85,
			Decision:    model.ClinicalDecision{Label: model.LabelAbnormal, Confidence: 0.85, Color: model.ColorRed},
			AnalyzedAt:  time.Date(2025, 5, 6, 7, 9, 0, 0, time.UTC),
		},
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleAnalyses()))

	var records []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, model.LabelAbnormal, records[1].Label)
	assert.Equal(t, "2025-05-06T07:08:09Z", records[0].AnalyzedAt)
	assert.Nil(t, records[1].TrueLabel)
	assert.NotContains(t, buf.String()[bytes.Index(buf.Bytes(), []byte(`"a2"`)):], "true_label")
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleAnalyses()))

	var records []Record
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "a1", records[0].ID)
	require.NotNil(t, records[0].TrueLabel)
	assert.Equal(t, 0, *records[0].TrueLabel)
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleAnalyses()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, []string{"a1", "beats.csv", "2", "0.1", "NORMAL", "0.9", "GREEN", "0", "0.7", "0.1", "2025-05-06T07:08:09Z"}, rows[1])
	assert.Equal(t, "", rows[2][7])
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.ErrorContains(t, Write(&bytes.Buffer{}, "xml", nil), "unsupported export format")
}
