package model

// FeatureCount is the number of samples in one PTB heartbeat row.
const FeatureCount = 187

// Sample is one row of raw ECG samples read from a CSV file.
type Sample struct {
	Label    *int
	Source   string
	Features []float64
	Row      int
}

// HasLabel reports whether the row carried a ground-truth label column.
func (s Sample) HasLabel() bool {
	return s.Label != nil
}
