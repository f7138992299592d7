// Package consolidate reshapes wide government tables into long-format
// observation rows. Vintage files arrive with one row per geography and
// year-suffixed measure columns (POPESTIMATE2024, DOMESTICMIG2023); charts
// want one row per (geography, year, measure).
package consolidate

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hearthline/chartpress/internal/domain"
)

// Component measure prefixes in the population-estimate vintages.
var PopEstimateMeasures = map[string]string{
	"population":              "POPESTIMATE",
	"births":                  "BIRTHS",
	"deaths":                  "DEATHS",
	"natural_change":          "NATURALCHG",
	"international_migration": "INTERNATIONALMIG",
	"domestic_migration":      "DOMESTICMIG",
	"net_migration":           "NETMIG",
}

// MeltSpec tells Melt how to key and reshape one wide table.
type MeltSpec struct {
	// GeoID builds the normalized geography key for a row.
	GeoID func(t domain.Table, row int) string

	// Measures maps long-format measure names to wide column prefixes. A
	// column melts when it is prefix + 4-digit year.
	Measures map[string]string

	// Filter, when set, drops rows before melting (e.g. SUMLEV=50 keeps
	// county records in a file that mixes summary levels).
	Filter func(t domain.Table, row int) bool
}

// Melt reshapes a wide table into long-format observations. Empty and
// suppressed cells are skipped, so the output row count equals the number of
// non-null wide cells under the melted columns. Output ordering is stable:
// (measure, geo, year).
func Melt(t domain.Table, spec MeltSpec) ([]domain.Observation, error) {
	if spec.GeoID == nil {
		return nil, fmt.Errorf("melt: GeoID func is required")
	}
	if len(spec.Measures) == 0 {
		return nil, fmt.Errorf("melt: no measures given")
	}

	type meltCol struct {
		index   int
		measure string
		year    int
	}

	var cols []meltCol
	for measure, prefix := range spec.Measures {
		for i, name := range t.Columns {
			if year, ok := yearSuffix(name, prefix); ok {
				cols = append(cols, meltCol{index: i, measure: measure, year: year})
			}
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("melt: no columns match any measure prefix")
	}

	var out []domain.Observation
	for row := range t.Rows {
		if spec.Filter != nil && !spec.Filter(t, row) {
			continue
		}
		geo := spec.GeoID(t, row)
		if geo == "" {
			continue
		}
		for _, c := range cols {
			if c.index >= len(t.Rows[row]) {
				continue
			}
			v := domain.ParseValue(t.Rows[row][c.index])
			if v == nil {
				continue
			}
			out = append(out, domain.Observation{
				GeoID:   geo,
				Year:    c.year,
				Measure: c.measure,
				Value:   v,
			})
		}
	}

	sortObservations(out)
	return out, nil
}

// yearSuffix reports whether name is prefix followed by exactly four digits.
func yearSuffix(name, prefix string) (int, bool) {
	if len(name) != len(prefix)+4 || name[:len(prefix)] != prefix {
		return 0, false
	}
	year, err := strconv.Atoi(name[len(prefix):])
	if err != nil {
		return 0, false
	}
	return year, true
}

// SpliceVintages combines two long tables covering overlapping decades. A
// later vintage supersedes the earlier one wherever both have data: earlier
// rows survive only for years before the later vintage's first year.
func SpliceVintages(earlier, later []domain.Observation) []domain.Observation {
	cutoff := 1 << 30
	for _, o := range later {
		if o.Year < cutoff {
			cutoff = o.Year
		}
	}

	out := make([]domain.Observation, 0, len(earlier)+len(later))
	for _, o := range earlier {
		if o.Year < cutoff {
			out = append(out, o)
		}
	}
	out = append(out, later...)

	sortObservations(out)
	return out
}

// WriteCSV emits observations as geo,year,measure,value. Ordering and float
// formatting are fixed, so the same input always produces byte-identical
// output.
func WriteCSV(w io.Writer, obs []domain.Observation) error {
	sorted := make([]domain.Observation, len(obs))
	copy(sorted, obs)
	sortObservations(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"geo_id", "year", "measure", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, o := range sorted {
		value := ""
		if o.Value != nil {
			value = strconv.FormatFloat(*o.Value, 'g', -1, 64)
		}
		rec := []string{o.GeoID, strconv.Itoa(o.Year), o.Measure, value}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortObservations(obs []domain.Observation) {
	sort.Slice(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Measure != b.Measure {
			return a.Measure < b.Measure
		}
		if a.GeoID != b.GeoID {
			return a.GeoID < b.GeoID
		}
		return a.Year < b.Year
	})
}
