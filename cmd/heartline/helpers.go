package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/config"
	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/inference"
	"github.com/Veraticus/heartline/internal/service"
	"github.com/Veraticus/heartline/internal/storage"
)

// loadSettings reads and validates the merged configuration.
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, common.NewUserError("Invalid configuration", err)
	}
	return settings, nil
}

// initStorage opens the history database and brings its schema up to date.
func initStorage(ctx context.Context, settings config.Settings) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadAnalyzer loads the model artifacts once and builds the analyzer.
// recorder may be nil to skip persistence.
func loadAnalyzer(settings config.Settings, recorder engine.Recorder) (*engine.Analyzer, *inference.Context, error) {
	thresholds, err := settings.Thresholds()
	if err != nil {
		return nil, nil, common.NewUserError("Invalid thresholds", err)
	}

	inferenceCtx, err := inference.Load(settings.ModelPath, settings.ScalerPath)
	if err != nil {
		return nil, nil, common.NewUserError(
			fmt.Sprintf("Failed to load model/scaler (model: %s, scaler: %s); run 'heartline train' first", settings.ModelPath, settings.ScalerPath),
			err)
	}

	if inferenceCtx.FeatureCount() != settings.FeatureCount {
		return nil, nil, common.NewUserError("Model does not match configured feature count",
			fmt.Errorf("%w: model expects %d, dataset.features is %d", inference.ErrFeatureMismatch, inferenceCtx.FeatureCount(), settings.FeatureCount))
	}

	opts := []engine.Option{engine.WithWorkers(settings.Workers)}
	if recorder != nil {
		opts = append(opts, engine.WithRecorder(recorder))
	}

	analyzer, err := engine.New(inferenceCtx, thresholds, opts...)
	if err != nil {
		return nil, nil, err
	}

	slog.Debug("Loaded analyzer",
		"model", settings.ModelPath,
		"scaler", settings.ScalerPath,
		"thresholds", thresholds.String())

	return analyzer, inferenceCtx, nil
}
