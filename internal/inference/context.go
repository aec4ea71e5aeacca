// Package inference turns raw ECG rows into abnormal probabilities using a
// fitted scaler and a trained dense network.
package inference

import (
	"context"
	"fmt"
	"math"
)

// OutOfRangeError is returned when the network produces a value that is
// not a probability.
type OutOfRangeError struct {
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("model output %v is not a probability in [0, 1]", e.Value)
}

// Prediction is the result of one inference.
type Prediction struct {
	Normalized  []float64
	Probability float64
}

// ProbabilitySource produces P(abnormal) for a raw feature vector.
type ProbabilitySource interface {
	Predict(ctx context.Context, features []float64) (Prediction, error)
}

var _ ProbabilitySource = (*Context)(nil)

// Context bundles the scaler and network loaded at startup. It is never
// mutated after construction and is safe for concurrent use.
type Context struct {
	scaler  *StandardScaler
	network *Network
}

// NewContext pairs a scaler and network whose feature counts agree.
func NewContext(scaler *StandardScaler, network *Network) (*Context, error) {
	if scaler == nil || network == nil {
		return nil, fmt.Errorf("scaler and network are both required")
	}
	if scaler.FeatureCount() != network.FeatureCount {
		return nil, fmt.Errorf("%w: scaler has %d features, network expects %d",
			ErrFeatureMismatch, scaler.FeatureCount(), network.FeatureCount)
	}
	return &Context{scaler: scaler, network: network}, nil
}

// Load reads both artifacts from disk and builds a Context.
func Load(modelPath, scalerPath string) (*Context, error) {
	network, err := LoadNetwork(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load scaler: %w", err)
	}
	return NewContext(scaler, network)
}

// FeatureCount returns the expected raw vector length.
func (c *Context) FeatureCount() int {
	return c.network.FeatureCount
}

// Predict normalizes features and runs the network.
func (c *Context) Predict(ctx context.Context, features []float64) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	normalized, err := c.scaler.Transform(features)
	if err != nil {
		return Prediction{}, err
	}

	p, err := c.network.Forward(normalized)
	if err != nil {
		return Prediction{}, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Prediction{}, &OutOfRangeError{Value: p}
	}

	return Prediction{Normalized: normalized, Probability: p}, nil
}
