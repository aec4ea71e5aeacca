package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetwork_Forward(t *testing.T) {
	n := tinyNetwork(1, -1, 0)
	require.NoError(t, n.Validate())

	p, err := n.Forward([]float64{2, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	p, err = n.Forward([]float64{3, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-3)), p, 1e-12)

	_, err = n.Forward([]float64{1})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestNetwork_ReLUHidden(t *testing.T) {
	n := &Network{
		FeatureCount: 1,
		Layers: []Layer{
			{Activation: ActivationReLU, Weights: [][]float64{{1}, {-1}}, Bias: []float64{0, 0}},
			{Activation: ActivationSigmoid, Weights: [][]float64{{1, 1}}, Bias: []float64{0}},
		},
	}
	require.NoError(t, n.Validate())

	// |x| through two ReLUs, so ±2 give the same output.
	a, err := n.Forward([]float64{2})
	require.NoError(t, err)
	b, err := n.Forward([]float64{-2})
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-12)
	assert.InDelta(t, Sigmoid(2), a, 1e-12)
}

func TestNetwork_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*Network)
		name    string
		wantMsg string
	}{
		{name: "no feature count", mutate: func(n *Network) { n.FeatureCount = 0 }, wantMsg: "feature count"},
		{name: "no layers", mutate: func(n *Network) { n.Layers = nil }, wantMsg: "no layers"},
		{name: "unknown activation", mutate: func(n *Network) { n.Layers[0].Activation = "tanh" }, wantMsg: "unknown activation"},
		{name: "bias mismatch", mutate: func(n *Network) { n.Layers[1].Bias = nil }, wantMsg: "biases"},
		{name: "weight width", mutate: func(n *Network) { n.Layers[1].Weights = [][]float64{{1}} }, wantMsg: "weights, expected 2"},
		{name: "linear output", mutate: func(n *Network) { n.Layers[1].Activation = ActivationLinear }, wantMsg: "output layer"},
		{
			name: "two outputs",
			mutate: func(n *Network) {
				n.Layers[1].Weights = [][]float64{{1, 1}, {1, 1}}
				n.Layers[1].Bias = []float64{0, 0}
			},
			wantMsg: "single unit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tinyNetwork(1, 1, 0)
			tt.mutate(n)
			err := n.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSigmoid_Stable(t *testing.T) {
	assert.Equal(t, 1.0, Sigmoid(1000))
	assert.Equal(t, 0.0, Sigmoid(-1000))
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-15)
}
