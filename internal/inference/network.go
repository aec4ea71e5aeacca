package inference

import (
	"errors"
	"fmt"
	"math"
)

// Activation names accepted in model artifacts.
const (
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationLinear  = "linear"
)

// Layer is one fully connected layer. Weights is indexed [output][input].
type Layer struct {
	Activation string      `json:"activation"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
}

// Inputs returns the layer's input width.
func (l *Layer) Inputs() int {
	if len(l.Weights) == 0 {
		return 0
	}
	return len(l.Weights[0])
}

// Outputs returns the layer's output width.
func (l *Layer) Outputs() int {
	return len(l.Weights)
}

// Network is a feed-forward stack of dense layers ending in a single unit.
type Network struct {
	Layers       []Layer `json:"layers"`
	FeatureCount int     `json:"feature_count"`
}

// Validate checks that layer shapes chain together and end in one output.
func (n *Network) Validate() error {
	if n.FeatureCount <= 0 {
		return errors.New("network feature count must be positive")
	}
	if len(n.Layers) == 0 {
		return errors.New("network has no layers")
	}

	width := n.FeatureCount
	for i := range n.Layers {
		l := &n.Layers[i]
		switch l.Activation {
		case ActivationReLU, ActivationSigmoid, ActivationLinear:
		default:
			return fmt.Errorf("layer %d: unknown activation %q", i, l.Activation)
		}
		if l.Outputs() == 0 {
			return fmt.Errorf("layer %d has no units", i)
		}
		if len(l.Bias) != l.Outputs() {
			return fmt.Errorf("layer %d: %d biases for %d units", i, len(l.Bias), l.Outputs())
		}
		for u, w := range l.Weights {
			if len(w) != width {
				return fmt.Errorf("%w: layer %d unit %d has %d weights, expected %d", ErrFeatureMismatch, i, u, len(w), width)
			}
		}
		width = l.Outputs()
	}

	if width != 1 {
		return fmt.Errorf("network must end in a single unit, got %d", width)
	}
	if last := n.Layers[len(n.Layers)-1].Activation; last != ActivationSigmoid {
		return fmt.Errorf("output layer must use %s activation, got %s", ActivationSigmoid, last)
	}
	return nil
}

// Forward runs x through the network and returns the output unit.
func (n *Network) Forward(x []float64) (float64, error) {
	if len(x) != n.FeatureCount {
		return 0, fmt.Errorf("%w: got %d features, network expects %d", ErrFeatureMismatch, len(x), n.FeatureCount)
	}

	activations := x
	for i := range n.Layers {
		activations = n.Layers[i].apply(activations)
	}
	return activations[0], nil
}

func (l *Layer) apply(in []float64) []float64 {
	out := make([]float64, len(l.Weights))
	for u, w := range l.Weights {
		z := l.Bias[u]
		for j, v := range in {
			z += w[j] * v
		}
		out[u] = Activate(l.Activation, z)
	}
	return out
}

// Activate applies the named activation to z.
func Activate(name string, z float64) float64 {
	switch name {
	case ActivationReLU:
		return math.Max(0, z)
	case ActivationSigmoid:
		return Sigmoid(z)
	default:
		return z
	}
}

// Sigmoid is the logistic function, stable for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
