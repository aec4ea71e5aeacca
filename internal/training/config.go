package training

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls network shape and optimizer settings.
type Config struct {
	HiddenUnits  []int     `yaml:"hidden_units"`
	Dropout      []float64 `yaml:"dropout"`
	Epochs       int       `yaml:"epochs"`
	BatchSize    int       `yaml:"batch_size"`
	LearningRate float64   `yaml:"learning_rate"`
	Beta1        float64   `yaml:"beta1"`
	Beta2        float64   `yaml:"beta2"`
	Epsilon      float64   `yaml:"epsilon"`
	TestFraction float64   `yaml:"test_fraction"`
	Seed         int64     `yaml:"seed"`
}

// DefaultConfig mirrors the reference training run: three ReLU layers of
// 128, 64 and 32 units, dropout 0.3 after the first two, Adam at 1e-3,
// 30 epochs of batch 32 and a 20% held-out test split.
func DefaultConfig() Config {
	return Config{
		HiddenUnits:  []int{128, 64, 32},
		Dropout:      []float64{0.3, 0.3, 0},
		Epochs:       30,
		BatchSize:    32,
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// LoadConfig reads a YAML training config. Keys missing from the file keep
// their DefaultConfig values; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open training config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse training config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid training config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if len(c.HiddenUnits) == 0 {
		return errors.New("at least one hidden layer is required")
	}
	for i, u := range c.HiddenUnits {
		if u <= 0 {
			return fmt.Errorf("hidden layer %d must have positive units, got %d", i, u)
		}
	}
	if len(c.Dropout) != 0 && len(c.Dropout) != len(c.HiddenUnits) {
		return fmt.Errorf("dropout needs one rate per hidden layer: %d rates for %d layers", len(c.Dropout), len(c.HiddenUnits))
	}
	for i, r := range c.Dropout {
		if r < 0 || r >= 1 {
			return fmt.Errorf("dropout rate %d must be in [0, 1), got %v", i, r)
		}
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
		return fmt.Errorf("adam betas must be in [0, 1), got %v and %v", c.Beta1, c.Beta2)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %v", c.Epsilon)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be in (0, 1), got %v", c.TestFraction)
	}
	return nil
}

func (c Config) dropoutRate(layer int) float64 {
	if layer < len(c.Dropout) {
		return c.Dropout[layer]
	}
	return 0
}
