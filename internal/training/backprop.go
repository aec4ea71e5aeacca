package training

import (
	"math"
	"math/rand"

	"github.com/Veraticus/heartline/internal/inference"
)

// gradients mirrors the shape of a network's parameters.
type gradients struct {
	weights [][][]float64
	bias    [][]float64
}

func newGradients(net *inference.Network) *gradients {
	g := &gradients{
		weights: make([][][]float64, len(net.Layers)),
		bias:    make([][]float64, len(net.Layers)),
	}
	for l := range net.Layers {
		layer := &net.Layers[l]
		g.weights[l] = make([][]float64, layer.Outputs())
		for u := range g.weights[l] {
			g.weights[l][u] = make([]float64, layer.Inputs())
		}
		g.bias[l] = make([]float64, layer.Outputs())
	}
	return g
}

func (g *gradients) zero() {
	for l := range g.weights {
		for u := range g.weights[l] {
			clear(g.weights[l][u])
		}
		clear(g.bias[l])
	}
}

func (g *gradients) scale(f float64) {
	for l := range g.weights {
		for u := range g.weights[l] {
			for j := range g.weights[l][u] {
				g.weights[l][u][j] *= f
			}
		}
		for u := range g.bias[l] {
			g.bias[l][u] *= f
		}
	}
}

// backprop runs one training-mode forward pass (with inverted dropout on
// hidden layers), accumulates gradients of the cross-entropy loss into g,
// and returns the predicted probability.
func backprop(net *inference.Network, g *gradients, x []float64, y int, cfg Config, rng *rand.Rand) float64 {
	layers := net.Layers
	last := len(layers) - 1

	// activations[l] is the input to layer l.
	activations := make([][]float64, len(layers)+1)
	preacts := make([][]float64, len(layers))
	masks := make([][]float64, len(layers))
	activations[0] = x

	for l := range layers {
		layer := &layers[l]
		in := activations[l]
		z := make([]float64, layer.Outputs())
		a := make([]float64, layer.Outputs())
		for u, w := range layer.Weights {
			sum := layer.Bias[u]
			for j, v := range in {
				sum += w[j] * v
			}
			z[u] = sum
			a[u] = inference.Activate(layer.Activation, sum)
		}

		if l < last {
			if rate := cfg.dropoutRate(l); rate > 0 {
				keep := 1 - rate
				mask := make([]float64, len(a))
				for u := range a {
					if rng.Float64() < keep {
						mask[u] = 1 / keep
					}
					a[u] *= mask[u]
				}
				masks[l] = mask
			}
		}

		preacts[l] = z
		activations[l+1] = a
	}

	p := activations[len(layers)][0]

	// Sigmoid output with binary cross-entropy: dL/dz = p - y.
	delta := []float64{p - float64(y)}

	for l := last; l >= 0; l-- {
		layer := &layers[l]
		in := activations[l]

		for u, d := range delta {
			if d == 0 {
				continue
			}
			row := g.weights[l][u]
			for j, v := range in {
				row[j] += d * v
			}
			g.bias[l][u] += d
		}

		if l == 0 {
			break
		}

		prev := make([]float64, layer.Inputs())
		for u, d := range delta {
			if d == 0 {
				continue
			}
			for j, w := range layer.Weights[u] {
				prev[j] += w * d
			}
		}

		below := l - 1
		for j := range prev {
			if masks[below] != nil {
				prev[j] *= masks[below][j]
			}
			prev[j] *= derivative(layers[below].Activation, preacts[below][j])
		}
		delta = prev
	}

	return p
}

func derivative(activation string, z float64) float64 {
	switch activation {
	case inference.ActivationReLU:
		if z > 0 {
			return 1
		}
		return 0
	case inference.ActivationSigmoid:
		s := inference.Sigmoid(z)
		return s * (1 - s)
	default:
		return 1
	}
}

// adam holds first and second moment estimates for every parameter.
type adam struct {
	mW, vW [][][]float64
	mB, vB [][]float64
	cfg    Config
	t      int
}

func newAdam(net *inference.Network, cfg Config) *adam {
	m := newGradients(net)
	v := newGradients(net)
	return &adam{mW: m.weights, vW: v.weights, mB: m.bias, vB: v.bias, cfg: cfg}
}

func (o *adam) step(net *inference.Network, g *gradients) {
	o.t++
	b1, b2 := o.cfg.Beta1, o.cfg.Beta2
	lr := o.cfg.LearningRate * math.Sqrt(1-math.Pow(b2, float64(o.t))) / (1 - math.Pow(b1, float64(o.t)))
	eps := o.cfg.Epsilon

	update := func(param, grad, m, v *float64) {
		*m = b1*(*m) + (1-b1)*(*grad)
		*v = b2*(*v) + (1-b2)*(*grad)*(*grad)
		*param -= lr * (*m) / (math.Sqrt(*v) + eps)
	}

	for l := range net.Layers {
		layer := &net.Layers[l]
		for u := range layer.Weights {
			for j := range layer.Weights[u] {
				update(&layer.Weights[u][j], &g.weights[l][u][j], &o.mW[l][u][j], &o.vW[l][u][j])
			}
			update(&layer.Bias[u], &g.bias[l][u], &o.mB[l][u], &o.vB[l][u])
		}
	}
}
