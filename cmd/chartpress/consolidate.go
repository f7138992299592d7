package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hearthline/chartpress/internal/adapter/census"
	"github.com/hearthline/chartpress/internal/consolidate"
	"github.com/hearthline/chartpress/internal/domain"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Reshape raw downloads into the observation warehouse",
}

// popestTarget pairs a vintage file (plus an optional earlier vintage for
// splicing) with the melt spec that reshapes it.
type popestTarget struct {
	dataset string
	current string // vintage file name, required
	earlier string // earlier vintage spliced in for pre-2020 years
	spec    consolidate.MeltSpec
}

func popestTargets() []popestTarget {
	return []popestTarget{
		{
			dataset: "popest_state",
			current: "state_v2025",
			earlier: "state_2010s",
			spec: consolidate.MeltSpec{
				GeoID: func(t domain.Table, row int) string {
					return domain.NormalizeStateFIPS(t.Cell(row, "STATE"))
				},
				Measures: consolidate.PopEstimateMeasures,
				Filter: func(t domain.Table, row int) bool {
					return t.Cell(row, "SUMLEV") == "040"
				},
			},
		},
		{
			dataset: "popest_county",
			current: "county_v2024",
			earlier: "county_2010s",
			spec: consolidate.MeltSpec{
				GeoID: func(t domain.Table, row int) string {
					return domain.NormalizeCountyFIPS(t.Cell(row, "STATE"), t.Cell(row, "COUNTY"))
				},
				Measures: consolidate.PopEstimateMeasures,
				Filter: func(t domain.Table, row int) bool {
					return t.Cell(row, "SUMLEV") == "050"
				},
			},
		},
		{
			dataset: "popest_cbsa",
			current: "cbsa_v2024",
			spec: consolidate.MeltSpec{
				GeoID: func(t domain.Table, row int) string {
					return domain.NormalizeCBSA(t.Cell(row, "CBSA"))
				},
				Measures: consolidate.PopEstimateMeasures,
			},
		},
	}
}

var consolidatePopestCmd = &cobra.Command{
	Use:   "popest",
	Short: "Melt population-estimate vintages into long format",
	Long: "Reshapes the downloaded vintage files into (geo, year, measure, value) rows,\n" +
		"splices earlier vintages for pre-2020 years, loads the warehouse, and writes\n" +
		"a consolidated CSV per dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWarehouse()
		if err != nil {
			return err
		}
		defer w.Close()

		for _, target := range popestTargets() {
			if err := consolidateTarget(cmd.Context(), target, w); err != nil {
				return err
			}
		}
		return nil
	},
}

func consolidateTarget(ctx context.Context, target popestTarget, w warehouseLoader) error {
	obs, err := meltVintage(target.current, target.spec)
	if err != nil {
		return fmt.Errorf("%s: %w", target.dataset, err)
	}

	if target.earlier != "" {
		earlierObs, err := meltVintage(target.earlier, target.spec)
		if os.IsNotExist(err) {
			app.logger.Warn("earlier vintage not downloaded, skipping splice",
				"dataset", target.dataset, "vintage", target.earlier)
		} else if err != nil {
			return fmt.Errorf("%s: %w", target.dataset, err)
		} else {
			obs = consolidate.SpliceVintages(earlierObs, obs)
		}
	}

	if err := w.Replace(ctx, target.dataset, obs); err != nil {
		return fmt.Errorf("%s: %w", target.dataset, err)
	}
	app.metrics.RowsConsolidated.Add(float64(len(obs)))

	csvPath := filepath.Join(app.cfg.DataDir, "consolidated", target.dataset+".csv")
	if err := writeObservations(csvPath, obs); err != nil {
		return fmt.Errorf("%s: %w", target.dataset, err)
	}
	app.logger.Info("dataset consolidated",
		"dataset", target.dataset, "rows", len(obs), "path", csvPath)
	return nil
}

// warehouseLoader is the slice of the warehouse the consolidator needs.
type warehouseLoader interface {
	Replace(ctx context.Context, dataset string, obs []domain.Observation) error
}

func meltVintage(name string, spec consolidate.MeltSpec) ([]domain.Observation, error) {
	path := rawPath(name + ".csv")
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	table, err := census.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	return consolidate.Melt(table, spec)
}

func writeObservations(path string, obs []domain.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := consolidate.WriteCSV(f, obs); err != nil {
		return err
	}
	return f.Close()
}

func init() {
	consolidateCmd.AddCommand(consolidatePopestCmd)
	rootCmd.AddCommand(consolidateCmd)
}
