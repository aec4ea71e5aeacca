package inference

// tinyNetwork returns a 2-feature network computing sigmoid(w·x + b)
// through an identity-like hidden layer.
func tinyNetwork(w0, w1, b float64) *Network {
	return &Network{
		FeatureCount: 2,
		Layers: []Layer{
			{
				Activation: ActivationLinear,
				Weights:    [][]float64{{1, 0}, {0, 1}},
				Bias:       []float64{0, 0},
			},
			{
				Activation: ActivationSigmoid,
				Weights:    [][]float64{{w0, w1}},
				Bias:       []float64{b},
			},
		},
	}
}
