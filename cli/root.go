// Package cli provides the morphogen command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/morphogen/config"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "morphogen",
	Short: "Evolve virtual creatures whose bodies and gaits are encoded in chromosomes",
	Long: `morphogen evolves articulated creatures. Each chromosome decodes into a
body plan and a set of joint controllers; fitness is the distance a creature
covers in a short physics episode.

Quick Start:
  morphogen evolve                       # Run (or resume) an evolution in ./data
  morphogen replay                       # Re-evaluate the latest generation
  morphogen render dna_0.csv             # Print a robot description
  morphogen inspect dna_0.csv            # Summarize a chromosome's body plan`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "morphogen %s\n", Version)
	},
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}

// loadConfig reads --config over the embedded defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
