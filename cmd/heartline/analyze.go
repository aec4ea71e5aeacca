package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/heartline/internal/cli"
	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/config"
	"github.com/Veraticus/heartline/internal/dataset"
	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
)

const (
	plotWidth  = 80
	plotHeight = 12
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Classify ECG rows from a CSV file",
		Long: `Classify one row (default: the first) or every row of a headerless CSV file.

Each row holds 187 samples, optionally followed by a 0/1 label column.
The decision, its confidence and a plot of the first 100 normalized
samples are printed. Results are recorded in the history database unless
--no-save is given.

Examples:
  # Analyze the first heartbeat
  heartline analyze ptbdb_abnormal.csv

  # Analyze row 42
  heartline analyze ptbdb_abnormal.csv --row 42

  # Analyze every row and show a summary
  heartline analyze ptbdb_normal.csv --all`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Int("row", 0, "row to analyze (0-based)")
	cmd.Flags().Bool("all", false, "analyze every row")
	cmd.Flags().Bool("details", false, "with --all, list every result")
	cmd.Flags().Bool("no-save", false, "do not record results in history")
	cmd.Flags().Bool("no-plot", false, "skip the waveform plot")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	row, _ := cmd.Flags().GetInt("row")
	all, _ := cmd.Flags().GetBool("all")
	details, _ := cmd.Flags().GetBool("details")
	noSave, _ := cmd.Flags().GetBool("no-save")
	noPlot, _ := cmd.Flags().GetBool("no-plot")

	if all && cmd.Flags().Changed("row") {
		return common.NewUserError("Use either --row or --all", fmt.Errorf("%w: conflicting flags", common.ErrInvalidInput))
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	path := config.ExpandPath(args[0])

	table, err := dataset.Load(path, settings.FeatureCount)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Invalid data format. Expected %d or %d columns", settings.FeatureCount+1, settings.FeatureCount), err)
	}

	var store service.Storage
	if !noSave {
		store, err = initStorage(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("Failed to close storage", "error", closeErr)
			}
		}()
	}

	var recorder engine.Recorder
	if store != nil {
		recorder = store
	}
	analyzer, _, err := loadAnalyzer(settings, recorder)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !all {
		sample, err := table.Sample(row)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("Row %d is not in %s (%d rows)", row, path, table.Len()), err)
		}
		analysis, err := analyzer.Analyze(ctx, sample)
		if err != nil {
			return common.NewUserError("Failed to analyze ECG", err)
		}
		printAnalysis(out, *analysis, !noPlot)
		return nil
	}

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), table.Len(), "Analyzing")
	results, err := analyzer.AnalyzeBatch(ctx, table.Samples(), func(model.Analysis) {
		cli.Advance(bar)
	})
	if err != nil {
		return common.NewUserError("Failed to analyze ECG", err)
	}

	if details {
		fmt.Fprintln(out, cli.RenderHistory(results))
	}
	fmt.Fprintln(out, cli.RenderBatchSummary(path, engine.Tally(results), len(results)))
	if summary := engine.Summarize(results); summary.Labeled > 0 {
		fmt.Fprintln(out, cli.RenderSummary(summary))
	}
	return nil
}

func printAnalysis(w io.Writer, a model.Analysis, plot bool) {
	fmt.Fprintln(w, cli.RenderDecision(a))
	if plot {
		fmt.Fprintln(w, cli.PlotWaveform(cli.Head(a.Normalized, cli.PlotSamples), plotWidth, plotHeight))
	}
}
