package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthline/chartpress/internal/artifact"
	"github.com/hearthline/chartpress/internal/pipeline"
)

var chartsFile string

// loadRegistry builds the chart registry: built-in charts plus any charts
// file given on the command line.
func loadRegistry() (*pipeline.Registry, error) {
	registry, err := builtinCharts()
	if err != nil {
		return nil, err
	}
	if chartsFile != "" {
		f, err := os.Open(chartsFile)
		if err != nil {
			return nil, fmt.Errorf("charts file: %w", err)
		}
		defer f.Close()
		if err := registry.LoadSpecs(f); err != nil {
			return nil, fmt.Errorf("charts file %s: %w", chartsFile, err)
		}
	}
	return registry, nil
}

var renderCmd = &cobra.Command{
	Use:   "render <chart>...",
	Short: "Run registered chart pipelines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		w, err := openWarehouse()
		if err != nil {
			return err
		}
		defer w.Close()

		store, err := artifact.Open(cmd.Context(), app.cfg)
		if err != nil {
			return err
		}

		for _, name := range args {
			spec, ok := registry.Get(name)
			if !ok {
				return fmt.Errorf("unknown chart %q (try 'chartpress charts')", name)
			}
			runner, err := buildChart(spec, w, store)
			if err != nil {
				return err
			}
			app.logger.Info("rendering chart", "chart", name, "config_id", spec.ConfigID())
			if err := runner.Run(cmd.Context()); err != nil {
				return err
			}
		}
		return nil
	},
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List registered chart specs",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		for _, name := range registry.Names() {
			spec, _ := registry.Get(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-12s %s\n", name, spec.Kind, spec.Output)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&chartsFile, "charts", "", "YAML file with additional chart specs")
	chartsCmd.Flags().StringVar(&chartsFile, "charts", "", "YAML file with additional chart specs")
	rootCmd.AddCommand(renderCmd, chartsCmd)
}
