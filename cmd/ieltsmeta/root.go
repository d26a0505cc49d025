package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/api"
	"github.com/jackzampolin/ieltsmeta/internal/config"
	"github.com/jackzampolin/ieltsmeta/internal/home"
	"github.com/jackzampolin/ieltsmeta/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ieltsmeta",
	Short: "IELTS Task 1 image to JSON metadata extraction",
	Long: `ieltsmeta turns IELTS Academic Writing Task 1 images (bar charts, line
graphs, pie charts, tables, process diagrams and maps) into JSON metadata
validated against a versioned schema.

A single vision-language model call produces each document. The service
runs as an HTTP API (ieltsmeta serve) or locally (ieltsmeta extract).`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ieltsmeta/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "ieltsmeta home directory (default: ~/.ieltsmeta)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the config file from --config and --home and loads it.
func loadConfig() (*config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	mgr, err := config.NewManager(h.ResolveConfigFile(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return mgr, nil
}

// newLogger builds the text logger for the configured level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
