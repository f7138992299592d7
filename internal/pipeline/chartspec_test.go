package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
	"github.com/hearthline/chartpress/internal/render"
)

func TestChartSpecValidate(t *testing.T) {
	valid := ChartSpec{
		Name:   "home-values",
		Kind:   KindChoropleth,
		Output: "maps/home-values.svg",
	}

	tests := []struct {
		name    string
		mutate  func(*ChartSpec)
		wantErr string
	}{
		{"valid", func(s *ChartSpec) {}, ""},
		{"missing name", func(s *ChartSpec) { s.Name = "" }, "name required"},
		{"unknown kind", func(s *ChartSpec) { s.Kind = "pie" }, "unknown kind"},
		{"missing output", func(s *ChartSpec) { s.Output = "" }, "output key"},
		{"bad join", func(s *ChartSpec) { s.Join = "outer" }, "join"},
		{"inner join ok", func(s *ChartSpec) { s.Join = "inner" }, ""},
		{"scatter without axes", func(s *ChartSpec) { s.Kind = KindScatter }, "x_measure"},
		{"bivariate without axes", func(s *ChartSpec) {
			s.Scale = ScaleSpec{Type: "bivariate"}
		}, "x_measure and y_measure"},
		{"bivariate on wrong kind", func(s *ChartSpec) {
			s.Kind = KindHexmap
			s.Scale = ScaleSpec{Type: "bivariate"}
			s.XMeasure, s.YMeasure = "births", "deaths"
		}, "requires kind choropleth"},
		{"bivariate choropleth ok", func(s *ChartSpec) {
			s.Scale = ScaleSpec{Type: "bivariate"}
			s.XMeasure, s.YMeasure = "births", "deaths"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestChartSpecJoinType(t *testing.T) {
	assert.Equal(t, geo.LeftJoin, ChartSpec{}.JoinType(), "default keeps no-data regions")
	assert.Equal(t, geo.InnerJoin, ChartSpec{Join: "inner"}.JoinType())
	assert.Equal(t, geo.LeftJoin, ChartSpec{Join: "left"}.JoinType())
}

func TestScaleSpecBuild(t *testing.T) {
	t.Run("quantile default", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		scale, err := ScaleSpec{}.Build(values)
		require.NoError(t, err)
		assert.NotEqual(t, scale.Color(domain.Float64(1)), scale.Color(domain.Float64(10)))
	})

	t.Run("continuous log", func(t *testing.T) {
		scale, err := ScaleSpec{Type: "continuous", Min: 0.05, Max: 10, Log: true}.Build(nil)
		require.NoError(t, err)
		assert.Equal(t, render.NoDataColor, scale.Color(nil))
	})

	t.Run("diverging", func(t *testing.T) {
		scale, err := ScaleSpec{Type: "diverging", Extent: 5}.Build(nil)
		require.NoError(t, err)
		assert.NotEqual(t, scale.Color(domain.Float64(-5)), scale.Color(domain.Float64(5)))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ScaleSpec{Type: "rainbow"}.Build(nil)
		assert.Error(t, err)
	})

	t.Run("degenerate bounds rejected", func(t *testing.T) {
		_, err := ScaleSpec{Type: "continuous", Min: 10, Max: 10}.Build(nil)
		assert.ErrorContains(t, err, "must exceed")

		_, err = ScaleSpec{Type: "continuous", Min: 0, Max: 100, Log: true}.Build(nil)
		assert.ErrorContains(t, err, "must be positive")

		_, err = ScaleSpec{Type: "diverging"}.Build(nil)
		assert.ErrorContains(t, err, "must be positive")
	})

	t.Run("bivariate needs two measures", func(t *testing.T) {
		_, err := ScaleSpec{Type: "bivariate"}.Build(nil)
		assert.ErrorContains(t, err, "BuildBivariate")
	})
}

func TestScaleSpecBuildBivariate(t *testing.T) {
	t.Run("terciles both axes", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
		ys := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}
		scale, err := ScaleSpec{Type: "bivariate"}.BuildBivariate(xs, ys)
		require.NoError(t, err)

		assert.Equal(t, render.BivariatePalette[0], scale.ColorXY(domain.Float64(1), domain.Float64(10)))
		assert.Equal(t, render.BivariatePalette[8], scale.ColorXY(domain.Float64(9), domain.Float64(90)))
		assert.Equal(t, render.NoDataColor, scale.ColorXY(nil, domain.Float64(50)))
	})

	t.Run("too few values", func(t *testing.T) {
		_, err := ScaleSpec{Type: "bivariate"}.BuildBivariate([]float64{1, 2}, []float64{1, 2, 3})
		assert.ErrorContains(t, err, "at least 3 values")
	})
}

func TestRegistry(t *testing.T) {
	t.Run("register and list", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(ChartSpec{
			Name: "b-chart", Kind: KindScatter, Output: "b.svg",
			XMeasure: "births", YMeasure: "deaths",
		}))
		require.NoError(t, r.Register(ChartSpec{Name: "a-chart", Kind: KindSpikes, Output: "a.html"}))

		assert.Equal(t, []string{"a-chart", "b-chart"}, r.Names())

		spec, ok := r.Get("a-chart")
		require.True(t, ok)
		assert.Equal(t, KindSpikes, spec.Kind)

		_, ok = r.Get("missing")
		assert.False(t, ok)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(ChartSpec{Name: "x", Kind: KindHexmap, Output: "x.svg"}))
		err := r.Register(ChartSpec{Name: "x", Kind: KindHexmap, Output: "y.svg"})
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("invalid spec rejected", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.Register(ChartSpec{Name: "x"}))
	})
}

func TestLoadSpecs(t *testing.T) {
	doc := `
charts:
  - name: home-values
    kind: choropleth
    title: Typical home values
    dataset: zillow
    measure: zhvi
    year: 2025
    geography: zcta
    join: left
    scale:
      type: continuous
      min: 0.05
      max: 10
      log: true
    labels:
      - text: Austin
        lon: -97.7
        lat: 30.3
      - text: Miami
        lon: -80.2
        lat: 25.8
        dx: 24
        dy: 12
    output: maps/home-values.svg
  - name: net-migration
    kind: spikes
    dataset: popest
    measure: net_migration
    year: 2024
    geography: county
    output: spikes/net-migration.html
`
	t.Run("loads and registers", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.LoadSpecs(strings.NewReader(doc)))
		assert.Equal(t, []string{"home-values", "net-migration"}, r.Names())

		spec, ok := r.Get("home-values")
		require.True(t, ok)
		assert.True(t, spec.Scale.Log)
		assert.Equal(t, "zcta", spec.Geography)
		require.Len(t, spec.Labels, 2)
		assert.Equal(t, LabelSpec{Text: "Miami", Lon: -80.2, Lat: 25.8, DX: 24, DY: 12}, spec.Labels[1])
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		r := NewRegistry()
		err := r.LoadSpecs(strings.NewReader("charts:\n  - name: x\n    kind: hexmap\n    output: x.svg\n    flavor: spicy\n"))
		assert.Error(t, err)
	})

	t.Run("invalid chart rejected", func(t *testing.T) {
		r := NewRegistry()
		err := r.LoadSpecs(strings.NewReader("charts:\n  - name: x\n    kind: pie\n    output: x.svg\n"))
		assert.ErrorContains(t, err, "unknown kind")
	})
}

func TestChartSpecConfigID(t *testing.T) {
	spec := ChartSpec{
		Name:      "county-pop-change",
		Kind:      KindChoropleth,
		Dataset:   "popest_county",
		Measure:   "population",
		FromYear:  2023,
		Year:      2024,
		Geography: "county",
		Output:    "maps/county-pop-change.svg",
	}

	assert.Equal(t, spec.ConfigID(), spec.ConfigID())

	changed := spec
	changed.Year = 2025
	assert.NotEqual(t, spec.ConfigID(), changed.ConfigID())

	swapped := spec
	swapped.XMeasure, swapped.YMeasure = "births", "deaths"
	assert.NotEqual(t, spec.ConfigID(), swapped.ConfigID())
}
