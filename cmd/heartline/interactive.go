package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/heartline/internal/tui"
)

func interactiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive [file.csv]",
		Short: "Open the interactive ECG workbench",
		Long: `Open a full-screen terminal UI to pick a CSV file and row, analyze it,
and read the decision next to a plot of the waveform.

Interactive analyses are not recorded in history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInteractive,
	}

	cmd.Flags().Int("row", 0, "initial row")

	return cmd
}

func runInteractive(cmd *cobra.Command, args []string) error {
	row, _ := cmd.Flags().GetInt("row")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	analyzer, _, err := loadAnalyzer(settings, nil)
	if err != nil {
		return err
	}

	opts := []tui.Option{
		tui.WithAnalyzer(analyzer),
		tui.WithFeatureCount(settings.FeatureCount),
		tui.WithRow(row),
	}
	if len(args) == 1 {
		opts = append(opts, tui.WithPath(args[0]))
	}

	return tui.Run(cmd.Context(), opts...)
}
