package inference

import (
	"errors"
	"fmt"
	"math"
)

// ErrFeatureMismatch is returned when a vector's length does not match the
// artifact it is applied to.
var ErrFeatureMismatch = errors.New("feature count mismatch")

// machineEpsilon is the float64 unit roundoff.
const machineEpsilon = 2.220446049250313e-16

// StandardScaler normalizes each feature to zero mean and unit variance
// using parameters fixed at training time.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-feature mean and population standard deviation.
// Constant features get a scale of 1 so they normalize to zero.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("cannot fit scaler on zero rows")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, errors.New("cannot fit scaler on zero features")
	}

	mean := make([]float64, width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrFeatureMismatch, i, len(row), width)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, width)
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] < 10*machineEpsilon {
			scale[j] = 1
		}
	}

	return &StandardScaler{Mean: mean, Scale: scale}, nil
}

// FeatureCount returns the number of features the scaler was fitted on.
func (s *StandardScaler) FeatureCount() int {
	return len(s.Mean)
}

// Validate checks that the parameters are consistent and usable.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return errors.New("scaler has no features")
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("%w: %d means, %d scales", ErrFeatureMismatch, len(s.Mean), len(s.Scale))
	}
	for i, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scale for feature %d is %v", i, sc)
		}
		if math.IsNaN(s.Mean[i]) || math.IsInf(s.Mean[i], 0) {
			return fmt.Errorf("mean for feature %d is %v", i, s.Mean[i])
		}
	}
	return nil
}

// Transform returns a normalized copy of x.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d features, scaler expects %d", ErrFeatureMismatch, len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// TransformAll normalizes every row.
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		t, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}
