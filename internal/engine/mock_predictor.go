package engine

import (
	"context"
	"sync"

	"github.com/Veraticus/heartline/internal/inference"
)

// MockPredictor returns canned probabilities for tests and demos.
type MockPredictor struct {
	Err         error
	ByFirst     map[float64]float64
	calls       int
	Probability float64
	mu          sync.Mutex
}

// Predict returns ByFirst[features[0]] when present, Probability otherwise.
func (m *MockPredictor) Predict(ctx context.Context, features []float64) (inference.Prediction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return inference.Prediction{}, err
	}
	if m.Err != nil {
		return inference.Prediction{}, m.Err
	}

	p := m.Probability
	if len(features) > 0 {
		if v, ok := m.ByFirst[features[0]]; ok {
			p = v
		}
	}
	return inference.Prediction{Normalized: features, Probability: p}, nil
}

// Calls returns how many times Predict ran.
func (m *MockPredictor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
