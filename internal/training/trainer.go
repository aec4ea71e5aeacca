// Package training fits the dense ECG classifier and its feature scaler.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/Veraticus/heartline/internal/dataset"
	"github.com/Veraticus/heartline/internal/inference"
)

// lossEpsilon clamps probabilities before taking logs.
const lossEpsilon = 1e-7

// EpochStats summarizes one pass over the training set.
type EpochStats struct {
	Epoch       int
	Loss        float64
	Accuracy    float64
	ValLoss     float64
	ValAccuracy float64
}

// Result is a trained network together with the scaler it expects.
type Result struct {
	Network      *inference.Network
	Scaler       *inference.StandardScaler
	History      []EpochStats
	TrainRows    int
	TestRows     int
	TestLoss     float64
	TestAccuracy float64
}

// Train fits a scaler on every row, splits off a test set, and trains the
// network with Adam on binary cross-entropy. onEpoch, when set, is called
// after each epoch. Cancelling ctx stops training between batches.
func Train(ctx context.Context, data *dataset.Labeled, cfg Config, onEpoch func(EpochStats)) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}
	if data == nil || data.Len() < 2 {
		return nil, errors.New("training needs at least two labeled rows")
	}

	scaler, err := inference.FitScaler(data.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	normalized, err := scaler.TransformAll(data.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize features: %w", err)
	}

	all := &dataset.Labeled{Features: normalized, Labels: append([]int(nil), data.Labels...)}
	all.Shuffle(cfg.Seed)
	train, test, err := all.Split(cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible training
	net := newNetwork(scaler.FeatureCount(), cfg.HiddenUnits, rng)
	opt := newAdam(net, cfg)

	slog.Info("Starting training",
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		"epochs", cfg.Epochs,
		"batch_size", cfg.BatchSize)

	history := make([]EpochStats, 0, cfg.Epochs)
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		loss, acc, err := runEpoch(ctx, net, opt, train, cfg, rng)
		if err != nil {
			return nil, err
		}

		valLoss, valAcc, err := Evaluate(net, test.Features, test.Labels)
		if err != nil {
			return nil, err
		}

		stats := EpochStats{
			Epoch:       epoch,
			Loss:        loss,
			Accuracy:    acc,
			ValLoss:     valLoss,
			ValAccuracy: valAcc,
		}
		history = append(history, stats)
		if onEpoch != nil {
			onEpoch(stats)
		}

		slog.Debug("Epoch complete",
			"epoch", epoch,
			"loss", loss,
			"accuracy", acc,
			"val_loss", valLoss,
			"val_accuracy", valAcc)
	}

	testLoss, testAcc, err := Evaluate(net, test.Features, test.Labels)
	if err != nil {
		return nil, err
	}

	return &Result{
		Network:      net,
		Scaler:       scaler,
		History:      history,
		TrainRows:    train.Len(),
		TestRows:     test.Len(),
		TestLoss:     testLoss,
		TestAccuracy: testAcc,
	}, nil
}

// Evaluate returns mean binary cross-entropy and accuracy at 0.5 over
// already normalized rows.
func Evaluate(net *inference.Network, features [][]float64, labels []int) (loss, accuracy float64, err error) {
	if len(features) != len(labels) {
		return 0, 0, fmt.Errorf("%d rows but %d labels", len(features), len(labels))
	}
	if len(features) == 0 {
		return 0, 0, errors.New("nothing to evaluate")
	}

	correct := 0
	for i, x := range features {
		p, fwdErr := net.Forward(x)
		if fwdErr != nil {
			return 0, 0, fmt.Errorf("row %d: %w", i, fwdErr)
		}
		loss += crossEntropy(p, labels[i])
		if predictedClass(p) == labels[i] {
			correct++
		}
	}

	n := float64(len(features))
	return loss / n, float64(correct) / n, nil
}

func runEpoch(ctx context.Context, net *inference.Network, opt *adam, train *dataset.Labeled, cfg Config, rng *rand.Rand) (loss, accuracy float64, err error) {
	order := rng.Perm(train.Len())
	grads := newGradients(net)

	correct := 0
	for start := 0; start < len(order); start += cfg.BatchSize {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, 0, ctxErr
		}

		end := min(start+cfg.BatchSize, len(order))
		grads.zero()
		for _, idx := range order[start:end] {
			p := backprop(net, grads, train.Features[idx], train.Labels[idx], cfg, rng)
			loss += crossEntropy(p, train.Labels[idx])
			if predictedClass(p) == train.Labels[idx] {
				correct++
			}
		}
		grads.scale(1 / float64(end-start))
		opt.step(net, grads)
	}

	n := float64(train.Len())
	return loss / n, float64(correct) / n, nil
}

func crossEntropy(p float64, y int) float64 {
	p = math.Min(math.Max(p, lossEpsilon), 1-lossEpsilon)
	if y == dataset.LabelAbnormal {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

func predictedClass(p float64) int {
	if p >= 0.5 {
		return dataset.LabelAbnormal
	}
	return dataset.LabelNormal
}

// newNetwork builds hidden ReLU layers and a sigmoid output unit with
// Glorot-uniform weights and zero biases.
func newNetwork(features int, hidden []int, rng *rand.Rand) *inference.Network {
	net := &inference.Network{FeatureCount: features}

	in := features
	for _, units := range hidden {
		net.Layers = append(net.Layers, glorotLayer(in, units, inference.ActivationReLU, rng))
		in = units
	}
	net.Layers = append(net.Layers, glorotLayer(in, 1, inference.ActivationSigmoid, rng))
	return net
}

func glorotLayer(in, out int, activation string, rng *rand.Rand) inference.Layer {
	limit := math.Sqrt(6 / float64(in+out))
	weights := make([][]float64, out)
	for u := range weights {
		weights[u] = make([]float64, in)
		for j := range weights[u] {
			weights[u][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	return inference.Layer{
		Activation: activation,
		Weights:    weights,
		Bias:       make([]float64, out),
	}
}
