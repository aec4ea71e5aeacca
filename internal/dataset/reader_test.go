package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvRow(values []string) string {
	return strings.Join(values, ",")
}

func makeRow(width int, fill string, label string) string {
	values := make([]string, width)
	for i := range values {
		values[i] = fill
	}
	if label != "" {
		values = append(values, label)
	}
	return csvRow(values)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRead_LabeledRows(t *testing.T) {
	input := makeRow(4, "0.25", "1.0") + "\n" + makeRow(4, "0.5", "0") + "\n"

	table, err := Read(strings.NewReader(input), 4)
	require.NoError(t, err)

	assert.True(t, table.Labeled)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, table.Features[0])
	assert.Equal(t, []int{1, 0}, table.Labels)
}

func TestRead_UnlabeledRows(t *testing.T) {
	table, err := Read(strings.NewReader("1,2,3\n4,5,6\n"), 3)
	require.NoError(t, err)

	assert.False(t, table.Labeled)
	s, err := table.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, s.Features)
	assert.False(t, s.HasLabel())
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{name: "wrong width", input: "1,2\n", wantMsg: "expected 3 or 4 columns, got 2"},
		{name: "ragged rows", input: "1,2,3\n1,2,3,4\n", wantMsg: "row 1 has 4 columns"},
		{name: "not a number", input: "1,x,3\n", wantMsg: "row 0 column 1"},
		{name: "non-finite", input: "1,NaN,3\n", wantMsg: "non-finite"},
		{name: "bad label", input: "1,2,3,2\n", wantMsg: "label must be 0 or 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), 3)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFormat)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := Read(strings.NewReader(""), 3)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestTable_SampleBounds(t *testing.T) {
	path := writeFile(t, "beats.csv", makeRow(3, "1", "1")+"\n")

	table, err := Load(path, 3)
	require.NoError(t, err)

	s, err := table.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, path, s.Source)
	require.NotNil(t, s.Label)
	assert.Equal(t, 1, *s.Label)

	// Mutating the sample must not touch the table.
	s.Features[0] = 42
	assert.Equal(t, 1.0, table.Features[0][0])

	_, err = table.Sample(1)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = table.Sample(-1)
	assert.ErrorIs(t, err, ErrRowOutOfRange)

	assert.Len(t, table.Samples(), 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), 3)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
