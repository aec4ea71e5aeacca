// Package dataset reads PTB-style ECG heartbeat rows from headerless CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/heartline/internal/model"
)

// Dataset errors.
var (
	ErrInvalidFormat = errors.New("invalid data format")
	ErrRowOutOfRange = errors.New("row out of range")
	ErrEmptyFile     = errors.New("file contains no rows")
)

// Table holds the parsed rows of one CSV file.
type Table struct {
	Source       string
	Features     [][]float64
	Labels       []int
	FeatureCount int
	Labeled      bool
}

// Load reads a CSV file of heartbeat rows. A file whose rows are
// featureCount+1 wide carries the label in the last column.
func Load(path string, featureCount int) (*Table, error) {
	return load(path, featureCount, true)
}

func load(path string, featureCount int, checkLabels bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	table, err := read(f, featureCount, checkLabels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Source = path
	return table, nil
}

// Read parses heartbeat rows from r. Every row must have the same width.
func Read(r io.Reader, featureCount int) (*Table, error) {
	return read(r, featureCount, true)
}

// read parses rows. Without checkLabels the label column only has to be
// numeric and Labels stays empty.
func read(r io.Reader, featureCount int, checkLabels bool) (*Table, error) {
	if featureCount <= 0 {
		return nil, fmt.Errorf("%w: feature count must be positive, got %d", ErrInvalidFormat, featureCount)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	table := &Table{FeatureCount: featureCount}
	width := -1

	for rowIdx := 0; ; rowIdx++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidFormat, rowIdx, err)
		}

		if width == -1 {
			width = len(record)
			switch width {
			case featureCount + 1:
				table.Labeled = true
			case featureCount:
			default:
				return nil, fmt.Errorf("%w: expected %d or %d columns, got %d",
					ErrInvalidFormat, featureCount, featureCount+1, width)
			}
		} else if len(record) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d",
				ErrInvalidFormat, rowIdx, len(record), width)
		}

		values := make([]float64, featureCount)
		for col := 0; col < featureCount; col++ {
			v, parseErr := parseValue(record[col])
			if parseErr != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrInvalidFormat, rowIdx, col, parseErr)
			}
			values[col] = v
		}
		table.Features = append(table.Features, values)

		if table.Labeled && !checkLabels {
			if _, parseErr := parseValue(record[featureCount]); parseErr != nil {
				return nil, fmt.Errorf("%w: row %d label: %v", ErrInvalidFormat, rowIdx, parseErr)
			}
		} else if table.Labeled {
			label, parseErr := parseLabel(record[featureCount])
			if parseErr != nil {
				return nil, fmt.Errorf("%w: row %d label: %v", ErrInvalidFormat, rowIdx, parseErr)
			}
			table.Labels = append(table.Labels, label)
		}
	}

	if len(table.Features) == 0 {
		return nil, ErrEmptyFile
	}
	if !checkLabels {
		table.Labeled = false
	}

	return table, nil
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// parseLabel accepts "0", "1", "0.0" and "1.0"; PTB exports write labels
// as floats.
func parseLabel(s string) (int, error) {
	v, err := parseValue(s)
	if err != nil {
		return 0, err
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	default:
		return 0, fmt.Errorf("label must be 0 or 1, got %v", v)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Features)
}

// Sample returns the row at index row.
func (t *Table) Sample(row int) (model.Sample, error) {
	if row < 0 || row >= len(t.Features) {
		return model.Sample{}, fmt.Errorf("%w: row %d, file has %d rows", ErrRowOutOfRange, row, len(t.Features))
	}

	features := make([]float64, len(t.Features[row]))
	copy(features, t.Features[row])

	sample := model.Sample{
		Source:   t.Source,
		Row:      row,
		Features: features,
	}
	if t.Labeled {
		label := t.Labels[row]
		sample.Label = &label
	}
	return sample, nil
}

// Samples returns every row as a sample.
func (t *Table) Samples() []model.Sample {
	samples := make([]model.Sample, 0, len(t.Features))
	for i := range t.Features {
		s, _ := t.Sample(i)
		samples = append(samples, s)
	}
	return samples
}
