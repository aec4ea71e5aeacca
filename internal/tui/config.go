package tui

import (
	"context"

	"github.com/Veraticus/heartline/internal/model"
)

// Analyzer produces a decision for one sample. *engine.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, sample model.Sample) (*model.Analysis, error)
}

// Config holds TUI configuration.
type Config struct {
	Analyzer     Analyzer
	Theme        Theme
	Path         string
	FeatureCount int
	Row          int
	Width        int
	Height       int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:        DefaultTheme,
		FeatureCount: model.FeatureCount,
		Width:        100,
		Height:       40,
	}
}

// WithAnalyzer sets the analyzer used for every request.
func WithAnalyzer(a Analyzer) Option {
	return func(c *Config) {
		c.Analyzer = a
	}
}

// WithPath pre-fills the CSV path.
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// WithRow pre-fills the row number.
func WithRow(row int) Option {
	return func(c *Config) {
		if row >= 0 {
			c.Row = row
		}
	}
}

// WithFeatureCount sets the expected samples per row.
func WithFeatureCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FeatureCount = n
		}
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}
