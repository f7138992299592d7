// Command validate runs data integrity checks across a chartpress data
// directory: the warehouse must agree with the consolidated CSVs, boundary
// files must parse and validate, and warehouse geographies must join onto
// geometry at a minimum match rate.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -min-match 0.9
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
	"github.com/hearthline/chartpress/internal/warehouse"
)

// check pairs a dataset with the boundary file its geographies join onto.
type check struct {
	dataset     string
	geoFile     string
	keyProperty string
	width       int // GEOID pad width for the key property
}

var checks = []check{
	{"popest_state", "state.geojson", "STATEFP", 2},
	{"popest_county", "county.geojson", "GEOID", 5},
	{"popest_cbsa", "cbsa.geojson", "CBSAFP", 5},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "validate:", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data", "chartpress data directory")
	minMatch := flag.Float64("min-match", 0.9, "minimum fraction of warehouse geographies with geometry")
	flag.Parse()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	w, err := warehouse.Open(filepath.Join(*dataDir, "warehouse.db"), logger)
	if err != nil {
		return err
	}
	defer w.Close()

	failures := 0
	for _, c := range checks {
		if err := validateDataset(ctx, *dataDir, c, w, *minMatch); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", c.dataset, err)
			failures++
			continue
		}
		fmt.Printf("ok   %s\n", c.dataset)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d datasets failed validation", failures, len(checks))
	}
	return nil
}

func validateDataset(ctx context.Context, dataDir string, c check, w *warehouse.Warehouse, minMatch float64) error {
	csvGeos, csvRows, err := readConsolidated(filepath.Join(dataDir, "consolidated", c.dataset+".csv"))
	if err != nil {
		return err
	}

	// Warehouse and CSV must describe the same consolidation.
	year, err := latestYear(ctx, w, c.dataset)
	if err != nil {
		return err
	}
	slice, err := w.Slice(ctx, c.dataset, "population", year)
	if err != nil {
		return err
	}
	for geoID := range slice {
		if !csvGeos[geoID] {
			return fmt.Errorf("geo %s in warehouse but not in consolidated CSV", geoID)
		}
	}

	geoms, err := readGeometry(filepath.Join(dataDir, "geo", c.geoFile), c.keyProperty, c.width)
	if err != nil {
		return err
	}
	geomKeys := make(map[string]bool, len(geoms))
	for _, g := range geoms {
		if err := g.Validate(); err != nil {
			return err
		}
		geomKeys[g.GeoID] = true
	}

	matched := 0
	for geoID := range slice {
		if geomKeys[geoID] {
			matched++
		}
	}
	rate := float64(matched) / float64(len(slice))
	fmt.Printf("     %s: %d csv rows, %d geographies, %d with geometry (%.0f%%)\n",
		c.dataset, csvRows, len(slice), matched, rate*100)
	if rate < minMatch {
		return fmt.Errorf("only %.0f%% of geographies have geometry (minimum %.0f%%)",
			rate*100, minMatch*100)
	}
	return nil
}

// readConsolidated returns the set of geo IDs and the row count of a
// consolidated long-format CSV.
func readConsolidated(path string) (map[string]bool, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	if len(header) < 4 || header[0] != "geo_id" {
		return nil, 0, fmt.Errorf("%s: unexpected header %v", path, header)
	}

	geos := make(map[string]bool)
	rows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", path, err)
		}
		if _, err := strconv.Atoi(rec[1]); err != nil {
			return nil, 0, fmt.Errorf("%s: bad year %q", path, rec[1])
		}
		geos[rec[0]] = true
		rows++
	}
	return geos, rows, nil
}

func readGeometry(path, keyProperty string, width int) ([]domain.GeometryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return geo.ReadFeatureCollection(f, keyProperty, func(s string) string {
		return domain.NormalizeGEOID(s, width)
	})
}

// latestYear finds the most recent population year in a dataset.
func latestYear(ctx context.Context, w *warehouse.Warehouse, dataset string) (int, error) {
	for year := 2030; year >= 2000; year-- {
		slice, err := w.Slice(ctx, dataset, "population", year)
		if err == nil && len(slice) > 0 {
			return year, nil
		}
	}
	return 0, fmt.Errorf("dataset %s has no population observations", dataset)
}
