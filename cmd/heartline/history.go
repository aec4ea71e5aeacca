package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/heartline/internal/cli"
	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/config"
	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/export"
	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
	"github.com/Veraticus/heartline/internal/sheets"
)

const formatTable = "table"

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded analyses",
		Long: `List, summarize, export or prune the analyses recorded by 'heartline analyze'.

Examples:
  # Last 20 analyses
  heartline history

  # Abnormal decisions from the past week as CSV
  heartline history --label abnormal --since 168h --format csv

  # Totals and agreement with recorded labels
  heartline history --summary

  # Publish today's analyses to the Google Sheet configured under sheets.*
  heartline history --since 24h --limit 0 --sheets

  # Delete analyses older than 30 days
  heartline history --prune 720h`,
		RunE: runHistory,
	}

	cmd.Flags().String("label", "", "only this decision (abnormal, uncertain, normal)")
	cmd.Flags().String("source", "", "only analyses of this file")
	cmd.Flags().String("since", "", "only analyses newer than a duration (24h) or date (2006-01-02)")
	cmd.Flags().Int("limit", 20, "maximum rows to list (0 for all)")
	cmd.Flags().String("format", formatTable, "output format (table, json, yaml, csv)")
	cmd.Flags().Bool("summary", false, "show aggregate statistics instead of rows")
	cmd.Flags().Bool("sheets", false, "export the listed analyses to Google Sheets")
	cmd.Flags().String("prune", "", "delete analyses older than this duration (720h) or date")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	labelFlag, _ := flags.GetString("label")
	source, _ := flags.GetString("source")
	sinceFlag, _ := flags.GetString("since")
	limit, _ := flags.GetInt("limit")
	format, _ := flags.GetString("format")
	summaryOnly, _ := flags.GetBool("summary")
	prune, _ := flags.GetString("prune")
	toSheets, _ := flags.GetBool("sheets")

	format = strings.ToLower(format)
	switch format {
	case formatTable, export.FormatJSON, export.FormatYAML, export.FormatCSV:
	default:
		return common.NewUserError("Unknown format "+format, fmt.Errorf("%w: format %q", common.ErrInvalidInput, format))
	}

	now := time.Now()
	filter := service.AnalysisFilter{Source: source, Limit: limit}
	if labelFlag != "" {
		label, err := model.ParseDecisionLabel(labelFlag)
		if err != nil {
			return common.NewUserError("Unknown label "+labelFlag, err)
		}
		filter.Label = label
	}
	if sinceFlag != "" {
		since, err := parseCutoff(sinceFlag, now)
		if err != nil {
			return common.NewUserError("Invalid --since value", err)
		}
		filter.Since = &since
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	out := cmd.OutOrStdout()

	if prune != "" {
		before, err := parseCutoff(prune, now)
		if err != nil {
			return common.NewUserError("Invalid --prune value", err)
		}
		n, err := store.DeleteAnalysesBefore(ctx, before)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d analyses recorded before %s", n, before.Format(time.RFC3339))))
		return nil
	}

	if summaryOnly {
		summary, err := store.SummarizeAnalyses(ctx, filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.RenderSummary(summary))
		return nil
	}

	analyses, err := store.ListAnalyses(ctx, filter)
	if err != nil {
		return err
	}

	if toSheets {
		return exportToSheets(cmd, analyses)
	}

	if format == formatTable {
		fmt.Fprint(out, cli.RenderHistory(analyses))
		return nil
	}
	return export.Write(out, format, analyses)
}

func exportToSheets(cmd *cobra.Command, analyses []model.Analysis) error {
	cfg, err := sheetsConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError("Invalid Google Sheets configuration", err)
	}

	ctx := cmd.Context()
	writer, err := sheets.NewWriter(ctx, cfg, slog.Default())
	if err != nil {
		return common.NewUserError("Failed to connect to Google Sheets", err)
	}
	target, err := writer.Write(ctx, analyses, engine.Summarize(analyses))
	if err != nil {
		return fmt.Errorf("failed to export to Google Sheets: %w", err)
	}

	msg := fmt.Sprintf("Exported %d analyses to Google Sheets", len(analyses))
	if target.URL != "" {
		msg += ": " + target.URL
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	return nil
}

// sheetsConfig overlays the sheets.* keys on the writer defaults.
func sheetsConfig(v *viper.Viper) (sheets.Config, error) {
	cfg := sheets.DefaultConfig()
	if err := v.UnmarshalKey("sheets", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode sheets config: %w", err)
	}
	cfg.ServiceAccountPath = config.ExpandPath(cfg.ServiceAccountPath)
	cfg.TokenFile = config.ExpandPath(cfg.TokenFile)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseCutoff accepts either a duration measured back from now or a date.
func parseCutoff(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("%w: negative duration %s", common.ErrInvalidInput, value)
		}
		return now.Add(-d), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither a duration nor a YYYY-MM-DD date", common.ErrInvalidInput, value)
	}
	return t, nil
}
