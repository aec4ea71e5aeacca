package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Label values used for training.
const (
	LabelNormal   = 0
	LabelAbnormal = 1
)

// Labeled is a feature matrix paired with binary labels.
type Labeled struct {
	Features [][]float64
	Labels   []int
}

// Len returns the number of rows.
func (l *Labeled) Len() int {
	return len(l.Features)
}

// LoadLabeled reads the normal and abnormal heartbeat files and assigns
// labels 0 and 1 regardless of what their last column held. The column
// must still be numeric.
func LoadLabeled(normalPath, abnormalPath string, featureCount int) (*Labeled, error) {
	normal, err := load(normalPath, featureCount, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load normal samples: %w", err)
	}
	abnormal, err := load(abnormalPath, featureCount, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load abnormal samples: %w", err)
	}

	return Combine(normal, abnormal), nil
}

// Combine concatenates a normal and an abnormal table into one labeled set.
func Combine(normal, abnormal *Table) *Labeled {
	out := &Labeled{
		Features: make([][]float64, 0, normal.Len()+abnormal.Len()),
		Labels:   make([]int, 0, normal.Len()+abnormal.Len()),
	}
	for _, row := range normal.Features {
		out.Features = append(out.Features, row)
		out.Labels = append(out.Labels, LabelNormal)
	}
	for _, row := range abnormal.Features {
		out.Features = append(out.Features, row)
		out.Labels = append(out.Labels, LabelAbnormal)
	}
	return out
}

// Shuffle permutes rows in place using seed.
func (l *Labeled) Shuffle(seed int64) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible shuffling, not security
	rng.Shuffle(len(l.Features), func(i, j int) {
		l.Features[i], l.Features[j] = l.Features[j], l.Features[i]
		l.Labels[i], l.Labels[j] = l.Labels[j], l.Labels[i]
	})
}

// Split shuffles a copy of the rows with seed and returns train and test
// partitions. The test partition holds ceil(n*testFraction) rows.
func (l *Labeled) Split(testFraction float64, seed int64) (train, test *Labeled, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}
	n := l.Len()
	if n < 2 {
		return nil, nil, errors.New("need at least two rows to split")
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n) //nolint:gosec // reproducible split

	testSize := int(math.Ceil(float64(n) * testFraction))
	if testSize >= n {
		testSize = n - 1
	}

	test = &Labeled{}
	train = &Labeled{}
	for i, idx := range indices {
		target := train
		if i < testSize {
			target = test
		}
		target.Features = append(target.Features, l.Features[idx])
		target.Labels = append(target.Labels, l.Labels[idx])
	}
	return train, test, nil
}

// Counts returns the number of normal and abnormal rows.
func (l *Labeled) Counts() (normal, abnormal int) {
	for _, y := range l.Labels {
		if y == LabelAbnormal {
			abnormal++
		} else {
			normal++
		}
	}
	return normal, abnormal
}
