package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hearthline/chartpress/internal/config"
	"github.com/hearthline/chartpress/internal/observability"
	"github.com/hearthline/chartpress/internal/warehouse"
)

var (
	cfgFile       string
	flagLogLevel  string
	flagLogFormat string
	flagDataDir   string
	flagOutDir    string

	app struct {
		cfg     *config.Config
		logger  *slog.Logger
		metrics *observability.Metrics
	}
)

var rootCmd = &cobra.Command{
	Use:           "chartpress",
	Short:         "Build the newsletter's data charts and maps",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}
		if f.Changed("log-format") {
			cfg.LogFormat = flagLogFormat
		}
		if f.Changed("data-dir") {
			cfg.DataDir = flagDataDir
		}
		if f.Changed("out") {
			cfg.ArtifactRoot = flagOutDir
		}

		app.cfg = cfg
		app.logger = observability.NewLogger(cfg)
		app.metrics = observability.NewMetrics()
		return nil
	},
}

// Execute runs the CLI and exits non-zero on any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chartpress:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default chartpress.yaml in the working directory)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&flagDataDir, "data-dir", "", "directory for raw downloads and the warehouse")
	pf.StringVar(&flagOutDir, "out", "", "artifact output directory (fs driver)")
}

// openWarehouse opens the observation database under the data directory.
func openWarehouse() (*warehouse.Warehouse, error) {
	w, err := warehouse.Open(filepath.Join(app.cfg.DataDir, "warehouse.db"), app.logger)
	if err != nil {
		return nil, err
	}
	w.SetMetrics(app.metrics)
	return w, nil
}
