// Command genmock writes synthetic vintage CSVs and boundary files so the
// full consolidate-and-render path can run offline: a handful of conus
// states, two counties each, and a few metros, with population components
// drawn from a fixed seed so output is reproducible.
//
// Usage:
//
//	go run ./cmd/genmock -data-dir data
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

type mockState struct {
	fips string
	name string
	lon  float64
	lat  float64
	pop  int
}

type mockCounty struct {
	state  string
	county string
	name   string
	pop    int
}

type mockMetro struct {
	cbsa string
	name string
	lon  float64
	lat  float64
	pop  int
}

var states = []mockState{
	{"04", "Arizona", -111.7, 34.3, 7400000},
	{"06", "California", -119.4, 36.7, 39000000},
	{"08", "Colorado", -105.5, 39.0, 5900000},
	{"12", "Florida", -81.7, 28.0, 22600000},
	{"36", "New York", -75.5, 43.0, 19600000},
	{"48", "Texas", -99.3, 31.5, 30500000},
}

var counties = []mockCounty{
	{"04", "013", "Maricopa County", 4500000},
	{"04", "019", "Pima County", 1050000},
	{"06", "037", "Los Angeles County", 9700000},
	{"06", "073", "San Diego County", 3280000},
	{"08", "031", "Denver County", 710000},
	{"08", "041", "El Paso County", 740000},
	{"12", "086", "Miami-Dade County", 2700000},
	{"12", "095", "Orange County", 1450000},
	{"36", "047", "Kings County", 2590000},
	{"36", "061", "New York County", 1600000},
	{"48", "201", "Harris County", 4800000},
	{"48", "453", "Travis County", 1300000},
}

var metros = []mockMetro{
	{"19100", "Dallas-Fort Worth-Arlington, TX", -97.0, 32.8, 8100000},
	{"26420", "Houston-Pasadena-The Woodlands, TX", -95.4, 29.8, 7500000},
	{"31080", "Los Angeles-Long Beach-Anaheim, CA", -118.2, 34.0, 12800000},
	{"35620", "New York-Newark-Jersey City, NY-NJ", -74.0, 40.7, 19900000},
	{"38060", "Phoenix-Mesa-Chandler, AZ", -112.1, 33.4, 5100000},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data", "directory to write raw and geo fixtures under")
	flag.Parse()

	rng := rand.New(rand.NewSource(1))

	if err := writeStateVintage(filepath.Join(*dataDir, "raw", "state_v2025.csv"), rng); err != nil {
		return err
	}
	if err := writeCountyVintage(filepath.Join(*dataDir, "raw", "county_v2024.csv"), rng); err != nil {
		return err
	}
	if err := writeMetroVintage(filepath.Join(*dataDir, "raw", "cbsa_v2024.csv"), rng); err != nil {
		return err
	}
	if err := writeStateGeo(filepath.Join(*dataDir, "geo", "state.geojson")); err != nil {
		return err
	}
	if err := writeCountyGeo(filepath.Join(*dataDir, "geo", "county.geojson")); err != nil {
		return err
	}
	if err := writeMetroGeo(filepath.Join(*dataDir, "geo", "cbsa.geojson")); err != nil {
		return err
	}

	fmt.Println("mock fixtures written under", *dataDir)
	return nil
}

// componentCols returns the year-suffixed measure columns and one row of
// component values: population drifts a little each year, components are
// scaled to its size.
func componentCols(years []int) []string {
	cols := make([]string, 0, len(years)*7)
	for _, prefix := range []string{"POPESTIMATE", "BIRTHS", "DEATHS", "NATURALCHG", "INTERNATIONALMIG", "DOMESTICMIG", "NETMIG"} {
		for _, y := range years {
			cols = append(cols, prefix+strconv.Itoa(y))
		}
	}
	return cols
}

func componentRow(rng *rand.Rand, basePop int, years []int) []string {
	n := len(years)
	pops := make([]int, n)
	births := make([]int, n)
	deaths := make([]int, n)
	intl := make([]int, n)
	dom := make([]int, n)

	pop := basePop
	for i := range years {
		births[i] = int(float64(pop) * (0.010 + rng.Float64()*0.004))
		deaths[i] = int(float64(pop) * (0.008 + rng.Float64()*0.004))
		intl[i] = int(float64(pop) * rng.Float64() * 0.006)
		dom[i] = int(float64(pop) * (rng.Float64() - 0.5) * 0.02)
		pop += births[i] - deaths[i] + intl[i] + dom[i]
		pops[i] = pop
	}

	var row []string
	appendAll := func(vals func(i int) int) {
		for i := 0; i < n; i++ {
			row = append(row, strconv.Itoa(vals(i)))
		}
	}
	appendAll(func(i int) int { return pops[i] })
	appendAll(func(i int) int { return births[i] })
	appendAll(func(i int) int { return deaths[i] })
	appendAll(func(i int) int { return births[i] - deaths[i] })
	appendAll(func(i int) int { return intl[i] })
	appendAll(func(i int) int { return dom[i] })
	appendAll(func(i int) int { return intl[i] + dom[i] })
	return row
}

func writeStateVintage(path string, rng *rand.Rand) error {
	years := []int{2020, 2021, 2022, 2023, 2024, 2025}
	header := append([]string{"SUMLEV", "STATE", "NAME"}, componentCols(years)...)
	rows := [][]string{header}
	for _, st := range states {
		row := append([]string{"040", st.fips, st.name}, componentRow(rng, st.pop, years)...)
		rows = append(rows, row)
	}
	return writeCSVFile(path, rows)
}

func writeCountyVintage(path string, rng *rand.Rand) error {
	years := []int{2020, 2021, 2022, 2023, 2024}
	header := append([]string{"SUMLEV", "STATE", "COUNTY", "NAME"}, componentCols(years)...)
	rows := [][]string{header}
	for _, co := range counties {
		row := append([]string{"050", co.state, co.county, co.name}, componentRow(rng, co.pop, years)...)
		rows = append(rows, row)
	}
	return writeCSVFile(path, rows)
}

func writeMetroVintage(path string, rng *rand.Rand) error {
	years := []int{2020, 2021, 2022, 2023, 2024}
	header := append([]string{"CBSA", "NAME"}, componentCols(years)...)
	rows := [][]string{header}
	for _, m := range metros {
		row := append([]string{m.cbsa, m.name}, componentRow(rng, m.pop, years)...)
		rows = append(rows, row)
	}
	return writeCSVFile(path, rows)
}

func writeCSVFile(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

type geoFeature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   map[string]any `json:"geometry"`
}

func square(lon, lat, half float64) map[string]any {
	return map[string]any{
		"type": "Polygon",
		"coordinates": [][][2]float64{{
			{lon - half, lat - half},
			{lon + half, lat - half},
			{lon + half, lat + half},
			{lon - half, lat + half},
			{lon - half, lat - half},
		}},
	}
}

func writeStateGeo(path string) error {
	features := make([]geoFeature, 0, len(states))
	for _, st := range states {
		features = append(features, geoFeature{
			Type:       "Feature",
			Properties: map[string]any{"STATEFP": st.fips, "NAME": st.name},
			Geometry:   square(st.lon, st.lat, 2.0),
		})
	}
	return writeGeoJSON(path, features)
}

func writeCountyGeo(path string) error {
	features := make([]geoFeature, 0, len(counties))
	for i, co := range counties {
		st := stateByFIPS(co.state)
		// Offset counties inside their state square so they don't overlap.
		lon := st.lon - 1 + float64(i%2)*2
		lat := st.lat - 0.5
		features = append(features, geoFeature{
			Type:       "Feature",
			Properties: map[string]any{"GEOID": co.state + co.county, "NAME": co.name},
			Geometry:   square(lon, lat, 0.6),
		})
	}
	return writeGeoJSON(path, features)
}

func writeMetroGeo(path string) error {
	features := make([]geoFeature, 0, len(metros))
	for _, m := range metros {
		features = append(features, geoFeature{
			Type:       "Feature",
			Properties: map[string]any{"CBSAFP": m.cbsa, "NAME": m.name},
			Geometry:   square(m.lon, m.lat, 0.8),
		})
	}
	return writeGeoJSON(path, features)
}

func writeGeoJSON(path string, features []geoFeature) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	doc := map[string]any{"type": "FeatureCollection", "features": features}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func stateByFIPS(fips string) mockState {
	for _, st := range states {
		if st.fips == fips {
			return st
		}
	}
	return mockState{}
}
