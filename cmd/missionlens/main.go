// Package main implements the missionlens binary.
//
// missionlens loads a dataset of space launches and either prints a
// filtered report or serves the exploration API over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/missionlens/missionlens/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "missionlens",
		Short: "Explore a dataset of historical space launches",
		Long: `missionlens loads a CSV, snappy-compressed CSV or SQLite dataset of space
launches and answers filter and aggregate questions about it.

Environment variables with the MISSIONLENS_ prefix override the config file,
and flags override both:
  MISSIONLENS_DATA_PATH     dataset file
  MISSIONLENS_HTTP_ADDR     HTTP listen address
  MISSIONLENS_LOG_LEVEL     debug, info, warn or error`,
		SilenceUsage: true,
	}

	root.AddCommand(newReportCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "missionlens version %s (commit: %s)\n", version, commit)
		},
	}
}

// commonFlags are shared by every command that loads the dataset.
type commonFlags struct {
	configFile string
	dataPath   string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "path to configuration file (YAML or JSON)")
	cmd.Flags().StringVar(&f.dataPath, "data", "", "dataset file (.csv, .csv.sz, .db)")
}

// loadConfig loads configuration from file and environment, then applies
// command line flags (highest priority).
func (f *commonFlags) loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if f.dataPath != "" {
		cfg.DataPath = f.dataPath
	}
	if apply != nil {
		apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
