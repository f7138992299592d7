package consolidate

import (
	"bytes"
	"testing"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateSpec() MeltSpec {
	return MeltSpec{
		GeoID: func(t domain.Table, row int) string {
			return domain.NormalizeStateFIPS(t.Cell(row, "STATE"))
		},
		Measures: map[string]string{
			"population":         "POPESTIMATE",
			"domestic_migration": "DOMESTICMIG",
		},
	}
}

func wideStateTable() domain.Table {
	return domain.Table{
		Columns: []string{"STATE", "NAME", "POPESTIMATE2023", "POPESTIMATE2024", "DOMESTICMIG2024"},
		Rows: [][]string{
			{"6", "California", "38900000", "39000000", "-268000"},
			{"48", "Texas", "30500000", "31000000", ""},
		},
	}
}

func TestMelt(t *testing.T) {
	obs, err := Melt(wideStateTable(), stateSpec())
	require.NoError(t, err)

	t.Run("row count equals non-null wide cells", func(t *testing.T) {
		// 5 melted cells, one of which (Texas DOMESTICMIG2024) is empty.
		assert.Len(t, obs, 5)
	})

	t.Run("keys are normalized and years extracted", func(t *testing.T) {
		var found bool
		for _, o := range obs {
			if o.GeoID == "06" && o.Year == 2024 && o.Measure == "population" {
				found = true
				require.NotNil(t, o.Value)
				assert.Equal(t, 39000000.0, *o.Value)
			}
			assert.NotEqual(t, "6", o.GeoID, "state FIPS must be zero padded")
		}
		assert.True(t, found)
	})

	t.Run("ordering is stable", func(t *testing.T) {
		again, err := Melt(wideStateTable(), stateSpec())
		require.NoError(t, err)
		assert.Equal(t, obs, again)
	})
}

func TestMelt_Filter(t *testing.T) {
	table := domain.Table{
		Columns: []string{"SUMLEV", "STATE", "COUNTY", "POPESTIMATE2024"},
		Rows: [][]string{
			{"040", "48", "000", "31000000"}, // state summary record
			{"050", "48", "113", "2600000"},  // county record
		},
	}
	spec := MeltSpec{
		GeoID: func(t domain.Table, row int) string {
			return domain.NormalizeCountyFIPS(t.Cell(row, "STATE"), t.Cell(row, "COUNTY"))
		},
		Measures: map[string]string{"population": "POPESTIMATE"},
		Filter: func(t domain.Table, row int) bool {
			return t.Cell(row, "SUMLEV") == "050"
		},
	}

	obs, err := Melt(table, spec)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "48113", obs[0].GeoID)
}

func TestMelt_Errors(t *testing.T) {
	t.Run("no matching columns", func(t *testing.T) {
		table := domain.Table{Columns: []string{"STATE", "NAME"}}
		_, err := Melt(table, stateSpec())
		require.Error(t, err)
	})

	t.Run("missing geo func", func(t *testing.T) {
		_, err := Melt(wideStateTable(), MeltSpec{Measures: map[string]string{"p": "POP"}})
		require.Error(t, err)
	})
}

func TestYearSuffix(t *testing.T) {
	cases := []struct {
		name, prefix string
		year         int
		ok           bool
	}{
		{"POPESTIMATE2024", "POPESTIMATE", 2024, true},
		{"POPESTIMATE042020", "POPESTIMATE", 0, false}, // census base column, 6 digits
		{"POPESTIMATE", "POPESTIMATE", 0, false},
		{"BIRTHS2021", "POPESTIMATE", 0, false},
	}
	for _, tc := range cases {
		year, ok := yearSuffix(tc.name, tc.prefix)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.year, year, tc.name)
		}
	}
}

func TestSpliceVintages(t *testing.T) {
	earlier := []domain.Observation{
		{GeoID: "06", Year: 2018, Measure: "population", Value: domain.Float64(39_400_000)},
		{GeoID: "06", Year: 2019, Measure: "population", Value: domain.Float64(39_500_000)},
		{GeoID: "06", Year: 2020, Measure: "population", Value: domain.Float64(39_350_000)}, // superseded
	}
	later := []domain.Observation{
		{GeoID: "06", Year: 2020, Measure: "population", Value: domain.Float64(39_370_000)},
		{GeoID: "06", Year: 2021, Measure: "population", Value: domain.Float64(39_100_000)},
	}

	combined := SpliceVintages(earlier, later)
	require.Len(t, combined, 4)

	byYear := map[int]float64{}
	for _, o := range combined {
		byYear[o.Year] = *o.Value
	}
	assert.Equal(t, 39_370_000.0, byYear[2020], "later vintage wins the overlap year")
	assert.Contains(t, byYear, 2018)
	assert.Contains(t, byYear, 2021)
}

func TestWriteCSV_Idempotent(t *testing.T) {
	obs := []domain.Observation{
		{GeoID: "48113", Year: 2024, Measure: "population", Value: domain.Float64(2600000)},
		{GeoID: "06075", Year: 2024, Measure: "population", Value: domain.Float64(808000)},
		{GeoID: "06075", Year: 2023, Measure: "domestic_migration", Value: nil},
	}

	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, obs))

	// Shuffle input order; output must be byte-identical.
	shuffled := []domain.Observation{obs[2], obs[0], obs[1]}
	require.NoError(t, WriteCSV(&b, shuffled))

	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Contains(t, a.String(), "geo_id,year,measure,value")
	assert.Contains(t, a.String(), "06075,2023,domestic_migration,")
}
