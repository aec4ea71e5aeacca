package training

import (
	"math/rand"
	"testing"

	"github.com/Veraticus/heartline/internal/inference"
	"github.com/stretchr/testify/require"
)

func sampleLoss(t *testing.T, net *inference.Network, x []float64, y int) float64 {
	t.Helper()
	p, err := net.Forward(x)
	require.NoError(t, err)
	return crossEntropy(p, y)
}

// TestBackprop_MatchesFiniteDifferences checks every analytic gradient
// against a central difference of the loss.
func TestBackprop_MatchesFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net := newNetwork(4, []int{5, 3}, rng)
	cfg := DefaultConfig()
	cfg.Dropout = nil

	x := []float64{0.3, -0.7, 1.2, 0.05}
	for _, y := range []int{0, 1} {
		g := newGradients(net)
		backprop(net, g, x, y, cfg, rng)

		const h = 1e-6
		for l := range net.Layers {
			layer := &net.Layers[l]
			for u := range layer.Weights {
				for j := range layer.Weights[u] {
					orig := layer.Weights[u][j]
					layer.Weights[u][j] = orig + h
					plus := sampleLoss(t, net, x, y)
					layer.Weights[u][j] = orig - h
					minus := sampleLoss(t, net, x, y)
					layer.Weights[u][j] = orig

					numeric := (plus - minus) / (2 * h)
					require.InDelta(t, numeric, g.weights[l][u][j], 1e-5, "layer %d w[%d][%d] y=%d", l, u, j, y)
				}

				orig := layer.Bias[u]
				layer.Bias[u] = orig + h
				plus := sampleLoss(t, net, x, y)
				layer.Bias[u] = orig - h
				minus := sampleLoss(t, net, x, y)
				layer.Bias[u] = orig

				numeric := (plus - minus) / (2 * h)
				require.InDelta(t, numeric, g.bias[l][u], 1e-5, "layer %d b[%d] y=%d", l, u, y)
			}
		}
	}
}

func TestAdam_StepMovesAgainstGradient(t *testing.T) {
	net := &inference.Network{
		FeatureCount: 1,
		Layers: []inference.Layer{
			{Activation: inference.ActivationSigmoid, Weights: [][]float64{{0}}, Bias: []float64{0}},
		},
	}
	opt := newAdam(net, DefaultConfig())
	g := newGradients(net)
	g.weights[0][0][0] = 2
	g.bias[0][0] = -3

	opt.step(net, g)

	// First Adam step moves each parameter by about lr against its gradient sign.
	require.InDelta(t, -0.001, net.Layers[0].Weights[0][0], 1e-6)
	require.InDelta(t, 0.001, net.Layers[0].Bias[0], 1e-6)
}
