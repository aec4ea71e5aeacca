package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heartline",
		Short: "❤️  ECG triage from the command line",
		Long: `heartline: classify ECG heartbeats as normal or abnormal.

Rows of 187 samples are read from CSV files (PTB Diagnostic layout),
normalized, scored by a trained network and mapped to a clinical decision:
ABNORMAL, UNCERTAIN (review recommended) or NORMAL.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/heartline/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("db", "", "database path (default: "+config.DefaultDatabasePath+")")
	cmd.PersistentFlags().String("model-dir", "", "directory holding model.json and scaler.json")
	cmd.PersistentFlags().Float64("abnormal-threshold", 0, "probability above which a beat is ABNORMAL (default 0.7)")
	cmd.PersistentFlags().Float64("uncertain-margin", 0, "width of the UNCERTAIN band centered on 0.5 (default 0.1)")

	// Bind flags to viper
	bind(cmd, config.KeyLogLevel, "log-level")
	bind(cmd, config.KeyLogFormat, "log-format")
	bind(cmd, config.KeyDatabasePath, "db")
	bind(cmd, config.KeyArtifactsDir, "model-dir")
	bind(cmd, config.KeyAbnormalThreshold, "abnormal-threshold")
	bind(cmd, config.KeyUncertainMargin, "uncertain-margin")

	// Add commands
	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(interactiveCmd())
	cmd.AddCommand(trainCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// bind ties a persistent flag to a viper key. Unset flags do not override
// the config file or defaults.
func bind(cmd *cobra.Command, key, flag string) {
	_ = viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Debug("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, common.UserMessage(err))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	config.SetDefaults(viper.GetViper())

	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/heartline", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("HEARTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setupLogging() error {
	level, err := common.ParseLevel(strings.ToLower(viper.GetString(config.KeyLogLevel)))
	if err != nil {
		return err
	}
	return common.SetupLogger(os.Stderr, level, strings.ToLower(viper.GetString(config.KeyLogFormat)))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			slog.Debug("heartline version", "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "heartline %s\n", version)
		},
	}
}
