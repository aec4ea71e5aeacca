package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/heartline/internal/cli"
	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/config"
	"github.com/Veraticus/heartline/internal/dataset"
	"github.com/Veraticus/heartline/internal/inference"
	"github.com/Veraticus/heartline/internal/training"
)

const (
	historyPlotWidth  = 60
	historyPlotHeight = 10
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier from normal and abnormal ECG files",
		Long: `Train a dense network on two headerless CSV files: one of normal beats
and one of abnormal beats (the PTB Diagnostic layout). The label column is
overwritten with 0 for normal and 1 for abnormal.

The fitted scaler and network are written as scaler.json and model.json.

Examples:
  heartline train --normal ptbdb_normal.csv --abnormal ptbdb_abnormal.csv

  # Shorter run with a custom output directory
  heartline train --normal n.csv --abnormal a.csv --epochs 5 --out ./model

  # Hyperparameters from a YAML file
  heartline train --normal n.csv --abnormal a.csv --train-config train.yaml`,
		RunE: runTrain,
	}

	defaults := training.DefaultConfig()
	cmd.Flags().String("normal", "", "CSV of normal beats (required)")
	cmd.Flags().String("abnormal", "", "CSV of abnormal beats (required)")
	cmd.Flags().String("out", "", "output directory (default: the configured artifacts directory)")
	cmd.Flags().String("train-config", "", "YAML file with training settings")
	cmd.Flags().Int("epochs", defaults.Epochs, "training epochs")
	cmd.Flags().Int("batch-size", defaults.BatchSize, "mini-batch size")
	cmd.Flags().Float64("learning-rate", defaults.LearningRate, "Adam learning rate")
	cmd.Flags().Float64("test-split", defaults.TestFraction, "fraction of rows held out for testing")
	cmd.Flags().Int64("seed", defaults.Seed, "random seed for shuffling, splitting and initialization")
	cmd.Flags().IntSlice("hidden", defaults.HiddenUnits, "hidden layer sizes")
	cmd.Flags().Float64Slice("dropout", defaults.Dropout, "dropout rate after each hidden layer")
	cmd.Flags().Bool("no-plot", false, "skip the accuracy chart")

	_ = cmd.MarkFlagRequired("normal")
	_ = cmd.MarkFlagRequired("abnormal")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	normalPath, _ := cmd.Flags().GetString("normal")
	abnormalPath, _ := cmd.Flags().GetString("abnormal")
	outDir, _ := cmd.Flags().GetString("out")
	noPlot, _ := cmd.Flags().GetBool("no-plot")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cfg, err := trainingConfig(cmd)
	if err != nil {
		return err
	}

	data, err := dataset.LoadLabeled(config.ExpandPath(normalPath), config.ExpandPath(abnormalPath), settings.FeatureCount)
	if err != nil {
		return common.NewUserError("Failed to load training data", err)
	}

	out := cmd.OutOrStdout()
	normal, abnormal := data.Counts()
	fmt.Fprintln(out, cli.FormatTitle("Training ECG classifier"))
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d normal and %d abnormal beats, %d epochs", normal, abnormal, cfg.Epochs)))

	result, err := training.Train(cmd.Context(), data, cfg, func(s training.EpochStats) {
		fmt.Fprintf(out, "Epoch %d/%d  loss %.4f  accuracy %.4f  val_loss %.4f  val_accuracy %.4f\n",
			s.Epoch, cfg.Epochs, s.Loss, s.Accuracy, s.ValLoss, s.ValAccuracy)
	})
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	modelPath, scalerPath := settings.ModelPath, settings.ScalerPath
	if outDir != "" {
		dir := config.ExpandPath(outDir)
		modelPath = filepath.Join(dir, inference.ModelFileName)
		scalerPath = filepath.Join(dir, inference.ScalerFileName)
	}

	if err := inference.SaveScaler(scalerPath, result.Scaler); err != nil {
		return err
	}
	if err := inference.SaveNetwork(modelPath, result.Network); err != nil {
		return err
	}

	if !noPlot {
		trainAcc := make([]float64, len(result.History))
		valAcc := make([]float64, len(result.History))
		for i, h := range result.History {
			trainAcc[i], valAcc[i] = h.Accuracy, h.ValAccuracy
		}
		fmt.Fprintln(out, cli.PlotHistory(trainAcc, valAcc, historyPlotWidth, historyPlotHeight))
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Test accuracy: %.4f (loss %.4f, %d held-out rows)",
		result.TestAccuracy, result.TestLoss, result.TestRows)))
	fmt.Fprintln(out, cli.FormatInfo("Model saved to "+modelPath))
	fmt.Fprintln(out, cli.FormatInfo("Scaler saved to "+scalerPath))
	return nil
}

// trainingConfig starts from defaults or --train-config and applies any
// flags the user set explicitly.
func trainingConfig(cmd *cobra.Command) (training.Config, error) {
	cfg := training.DefaultConfig()
	if path, _ := cmd.Flags().GetString("train-config"); path != "" {
		loaded, err := training.LoadConfig(config.ExpandPath(path))
		if err != nil {
			return training.Config{}, common.NewUserError("Invalid training config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("epochs") {
		cfg.Epochs, _ = flags.GetInt("epochs")
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("learning-rate") {
		cfg.LearningRate, _ = flags.GetFloat64("learning-rate")
	}
	if flags.Changed("test-split") {
		cfg.TestFraction, _ = flags.GetFloat64("test-split")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("hidden") {
		cfg.HiddenUnits, _ = flags.GetIntSlice("hidden")
		if !flags.Changed("dropout") {
			cfg.Dropout = nil
		}
	}
	if flags.Changed("dropout") {
		cfg.Dropout, _ = flags.GetFloat64Slice("dropout")
	}

	if err := cfg.Validate(); err != nil {
		return training.Config{}, common.NewUserError("Invalid training settings", err)
	}
	return cfg, nil
}
