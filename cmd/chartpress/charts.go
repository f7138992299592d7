package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hearthline/chartpress/internal/artifact"
	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
	"github.com/hearthline/chartpress/internal/pipeline"
	"github.com/hearthline/chartpress/internal/render"
	"github.com/hearthline/chartpress/internal/warehouse"
)

// hexSizeMeters is the equal-area hex cell size for cartograms.
const hexSizeMeters = 25000

// geography describes how to read and key one boundary file under
// data/geo/<name>.geojson.
type geography struct {
	file        string
	keyProperty string
	normalize   func(string) string
	underlay    bool // draw the state outline layer behind it
}

var geographies = map[string]geography{
	"state": {
		file:        "state.geojson",
		keyProperty: "STATEFP",
		normalize:   conusState,
	},
	"county": {
		file:        "county.geojson",
		keyProperty: "GEOID",
		normalize:   conusCounty,
		underlay:    true,
	},
	"zcta": {
		file:        "zcta.geojson",
		keyProperty: "ZCTA5CE20",
		normalize:   domain.NormalizeZCTA,
		underlay:    true,
	},
	"cbsa": {
		file:        "cbsa.geojson",
		keyProperty: "CBSAFP",
		normalize:   domain.NormalizeCBSA,
		underlay:    true,
	},
	"puma": {
		file:        "puma.geojson",
		keyProperty: "GEOID10",
		normalize: func(s string) string {
			return domain.NormalizeGEOID(s, 7)
		},
		underlay: true,
	},
}

func conusState(s string) string {
	s = domain.NormalizeStateFIPS(s)
	if !domain.IsConusState(s) {
		return ""
	}
	return s
}

func conusCounty(s string) string {
	s = domain.NormalizeGEOID(s, 5)
	if len(s) < 2 || !domain.IsConusState(s[:2]) {
		return ""
	}
	return s
}

// chartRunner erases the pipeline's stage types so render can run any kind.
type chartRunner interface {
	Run(ctx context.Context) error
}

// mapData is what the fetch stage produces for map charts: warehouse
// metrics plus unprojected boundary records. metricsY is only set for
// bivariate charts, which color by two measures.
type mapData struct {
	metrics  map[string]*float64
	metricsY map[string]*float64
	geoms    []domain.GeometryRecord
	underlay []domain.GeometryRecord
}

// mapLayers is the transform output handed to map renderers.
type mapLayers struct {
	features []geo.JoinedFeature
	fills    []string // per-feature colors when the scale needs two values
	cells    []geo.HexCell
	underlay []domain.GeometryRecord
	scale    render.Scale
	labels   []render.Label
}

// buildChart assembles the three pipeline stages for a chart spec.
func buildChart(spec pipeline.ChartSpec, w *warehouse.Warehouse, store artifact.Store) (chartRunner, error) {
	switch spec.Kind {
	case pipeline.KindChoropleth:
		return pipeline.New(spec.Name, mapSource(spec, w), choroplethTransform(spec), choroplethRender(spec), store, app.logger, app.metrics), nil
	case pipeline.KindHexmap:
		return pipeline.New(spec.Name, mapSource(spec, w), hexmapTransform(spec), hexmapRender(spec), store, app.logger, app.metrics), nil
	case pipeline.KindBubbles:
		return pipeline.New(spec.Name, mapSource(spec, w), bubblesTransform(spec), bubblesRender(spec), store, app.logger, app.metrics), nil
	case pipeline.KindScatter:
		return pipeline.New(spec.Name, scatterSource(spec, w), scatterTransform(spec), scatterRender(spec), store, app.logger, app.metrics), nil
	case pipeline.KindSpikes:
		return pipeline.New(spec.Name, mapSource(spec, w), spikesTransform(spec), spikesRender(spec), store, app.logger, app.metrics), nil
	default:
		return nil, fmt.Errorf("chart %s: unknown kind %q", spec.Name, spec.Kind)
	}
}

// loadMetrics runs the warehouse query the spec describes: a plain slice,
// a percent change when from_year is set, or a per-capita rate when denom
// is set.
func loadMetrics(ctx context.Context, w *warehouse.Warehouse, spec pipeline.ChartSpec) (map[string]*float64, error) {
	switch {
	case spec.FromYear != 0:
		return w.PercentChange(ctx, spec.Dataset, spec.Measure, spec.FromYear, spec.Year)
	case spec.Denom != "":
		return w.PerCapita(ctx, spec.Dataset, spec.Measure, spec.Denom, spec.Year, 1000)
	default:
		return w.Slice(ctx, spec.Dataset, spec.Measure, spec.Year)
	}
}

func loadGeography(name string) (geography, []domain.GeometryRecord, error) {
	g, ok := geographies[name]
	if !ok {
		return geography{}, nil, fmt.Errorf("unknown geography %q", name)
	}
	path := filepath.Join(app.cfg.DataDir, "geo", g.file)
	f, err := os.Open(path)
	if err != nil {
		return geography{}, nil, fmt.Errorf("geography %s: %w", name, err)
	}
	defer f.Close()

	recs, err := geo.ReadFeatureCollection(f, g.keyProperty, g.normalize)
	if err != nil {
		return geography{}, nil, fmt.Errorf("geography %s: %w", name, err)
	}
	return g, recs, nil
}

func mapSource(spec pipeline.ChartSpec, w *warehouse.Warehouse) pipeline.SourceFunc[mapData] {
	return func(ctx context.Context) (mapData, error) {
		var (
			metrics, metricsY map[string]*float64
			err               error
		)
		if spec.Scale.Type == "bivariate" {
			metrics, err = w.Slice(ctx, spec.Dataset, spec.XMeasure, spec.Year)
			if err != nil {
				return mapData{}, err
			}
			metricsY, err = w.Slice(ctx, spec.Dataset, spec.YMeasure, spec.Year)
		} else {
			metrics, err = loadMetrics(ctx, w, spec)
		}
		if err != nil {
			return mapData{}, err
		}
		g, geoms, err := loadGeography(spec.Geography)
		if err != nil {
			return mapData{}, err
		}

		data := mapData{metrics: metrics, metricsY: metricsY, geoms: geoms}
		if g.underlay {
			_, states, err := loadGeography("state")
			if err != nil {
				return mapData{}, err
			}
			data.underlay = states
		}
		return data, nil
	}
}

func projectMap(in mapData) ([]domain.GeometryRecord, []domain.GeometryRecord) {
	geoms := geo.ProjectAll(in.geoms)
	underlay := geo.ProjectAll(in.underlay)
	if len(underlay) > 0 {
		// Clip stray fragments (offshore territories on metro files) to the
		// conus frame.
		minX, minY, maxX, maxY := geo.Bounds(underlay)
		geoms = geo.FilterByBounds(geoms, minX, minY, maxX, maxY, 100000)
	}
	return geoms, underlay
}

func choroplethTransform(spec pipeline.ChartSpec) pipeline.TransformerFunc[mapData, mapLayers] {
	return func(ctx context.Context, in mapData) (mapLayers, error) {
		if spec.Scale.Type == "bivariate" {
			return bivariateLayers(spec, in)
		}
		geoms, underlay := projectMap(in)
		features := geo.Join(in.metrics, geoms, spec.JoinType())
		scale, err := spec.Scale.Build(geo.Values(features))
		if err != nil {
			return mapLayers{}, err
		}
		return mapLayers{features: features, underlay: underlay, scale: scale, labels: chartLabels(spec)}, nil
	}
}

// bivariateLayers colors each region by the tercile classes of two measures.
func bivariateLayers(spec pipeline.ChartSpec, in mapData) (mapLayers, error) {
	geoms, underlay := projectMap(in)
	features := geo.Join(in.metrics, geoms, spec.JoinType())

	var xs, ys []float64
	for _, f := range features {
		y := in.metricsY[f.GeoID]
		if f.Value != nil && y != nil {
			xs = append(xs, *f.Value)
			ys = append(ys, *y)
		}
	}
	scale, err := spec.Scale.BuildBivariate(xs, ys)
	if err != nil {
		return mapLayers{}, err
	}

	fills := make([]string, len(features))
	for i, f := range features {
		fills[i] = scale.ColorXY(f.Value, in.metricsY[f.GeoID])
	}
	return mapLayers{features: features, fills: fills, underlay: underlay, scale: scale, labels: chartLabels(spec)}, nil
}

// chartLabels projects the spec's lon/lat label anchors into map space.
func chartLabels(spec pipeline.ChartSpec) []render.Label {
	if len(spec.Labels) == 0 {
		return nil
	}
	labels := make([]render.Label, 0, len(spec.Labels))
	for _, l := range spec.Labels {
		x, y := geo.AlbersUSA(l.Lon, l.Lat)
		labels = append(labels, render.Label{Text: l.Text, X: x, Y: y, DX: l.DX, DY: l.DY})
	}
	return labels
}

func choroplethRender(spec pipeline.ChartSpec) pipeline.RendererFunc[mapLayers] {
	return func(ctx context.Context, in mapLayers) ([]domain.Artifact, error) {
		c := render.Choropleth{
			Frame:    render.DefaultFrame(spec.Title, spec.Subtitle, spec.Source),
			Features: in.features,
			Fills:    in.fills,
			Underlay: in.underlay,
			Scale:    in.scale,
			Labels:   in.labels,
		}
		switch s := in.scale.(type) {
		case render.FixedScale:
			c.LegendScale = &s
		case render.ContinuousScale:
			c.LegendRamp = s.Ramp
			c.LegendMin = fmt.Sprintf("%g", s.Min)
			c.LegendMax = fmt.Sprintf("%g", s.Max)
		case render.DivergingScale:
			c.LegendRamp = s.Ramp
			c.LegendMin = fmt.Sprintf("-%g", s.Extent)
			c.LegendMax = fmt.Sprintf("+%g", s.Extent)
		case render.BivariateScale:
			c.LegendBivariate = &s
			c.LegendXLabel = spec.XMeasure
			c.LegendYLabel = spec.YMeasure
		}
		body, err := c.Render()
		if err != nil {
			return nil, err
		}
		app.metrics.RendersCompleted.WithLabelValues(spec.Kind).Inc()
		return []domain.Artifact{domain.NewArtifact(spec.Output, "image/svg+xml", body)}, nil
	}
}

func hexmapTransform(spec pipeline.ChartSpec) pipeline.TransformerFunc[mapData, mapLayers] {
	return func(ctx context.Context, in mapData) (mapLayers, error) {
		geoms, underlay := projectMap(in)
		features := geo.Join(in.metrics, geoms, geo.InnerJoin)

		points := make([]geo.WeightedPoint, 0, len(features))
		for _, f := range features {
			x, y := geo.Centroid(f.GeometryRecord)
			points = append(points, geo.WeightedPoint{X: x, Y: y, Value: *f.Value})
		}
		cells := geo.HexBin(points, hexSizeMeters)

		values := make([]float64, len(cells))
		for i, c := range cells {
			values[i] = c.Value
		}
		scale, err := spec.Scale.Build(values)
		if err != nil {
			return mapLayers{}, err
		}
		return mapLayers{cells: cells, underlay: underlay, scale: scale}, nil
	}
}

func hexmapRender(spec pipeline.ChartSpec) pipeline.RendererFunc[mapLayers] {
	return func(ctx context.Context, in mapLayers) ([]domain.Artifact, error) {
		h := render.HexMap{
			Frame:   render.DefaultFrame(spec.Title, spec.Subtitle, spec.Source),
			Cells:   in.cells,
			HexSize: hexSizeMeters,
			Scale:   in.scale,
		}
		if s, ok := in.scale.(render.ContinuousScale); ok {
			h.LegendRamp = s.Ramp
			h.LegendMin = fmt.Sprintf("%g", s.Min)
			h.LegendMax = fmt.Sprintf("%g", s.Max)
		}
		h.Underlay = in.underlay
		body, err := h.Render()
		if err != nil {
			return nil, err
		}
		app.metrics.RendersCompleted.WithLabelValues(spec.Kind).Inc()
		return []domain.Artifact{domain.NewArtifact(spec.Output, "image/svg+xml", body)}, nil
	}
}

func bubblesTransform(spec pipeline.ChartSpec) pipeline.TransformerFunc[mapData, mapLayers] {
	return func(ctx context.Context, in mapData) (mapLayers, error) {
		geoms, underlay := projectMap(in)
		features := geo.Join(in.metrics, geoms, geo.InnerJoin)
		return mapLayers{features: features, underlay: underlay}, nil
	}
}

func bubblesRender(spec pipeline.ChartSpec) pipeline.RendererFunc[mapLayers] {
	return func(ctx context.Context, in mapLayers) ([]domain.Artifact, error) {
		body, err := render.BubbleMap{
			Frame:     render.DefaultFrame(spec.Title, spec.Subtitle, spec.Source),
			Features:  in.features,
			Underlay:  in.underlay,
			MaxRadius: 40,
		}.Render()
		if err != nil {
			return nil, err
		}
		app.metrics.RendersCompleted.WithLabelValues(spec.Kind).Inc()
		return []domain.Artifact{domain.NewArtifact(spec.Output, "image/svg+xml", body)}, nil
	}
}

func scatterSource(spec pipeline.ChartSpec, w *warehouse.Warehouse) pipeline.SourceFunc[[]warehouse.PanelRow] {
	return func(ctx context.Context) ([]warehouse.PanelRow, error) {
		return w.Panel(ctx, spec.Dataset, []string{spec.XMeasure, spec.YMeasure}, spec.Year, spec.Year)
	}
}

func scatterTransform(spec pipeline.ChartSpec) pipeline.TransformerFunc[[]warehouse.PanelRow, []render.ScatterPoint] {
	return func(ctx context.Context, rows []warehouse.PanelRow) ([]render.ScatterPoint, error) {
		var points []render.ScatterPoint
		for _, row := range rows {
			x, y := row.Values[spec.XMeasure], row.Values[spec.YMeasure]
			if x == nil || y == nil {
				continue
			}
			points = append(points, render.ScatterPoint{X: *x, Y: *y})
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("chart %s: no rows with both measures", spec.Name)
		}
		return points, nil
	}
}

func scatterRender(spec pipeline.ChartSpec) pipeline.RendererFunc[[]render.ScatterPoint] {
	return func(ctx context.Context, points []render.ScatterPoint) ([]domain.Artifact, error) {
		body, err := render.Scatter{
			Frame:  render.DefaultFrame(spec.Title, spec.Subtitle, spec.Source),
			Points: points,
			XLabel: spec.XMeasure,
			YLabel: spec.YMeasure,
		}.Render()
		if err != nil {
			return nil, err
		}
		app.metrics.RendersCompleted.WithLabelValues(spec.Kind).Inc()
		return []domain.Artifact{domain.NewArtifact(spec.Output, "image/svg+xml", body)}, nil
	}
}

func spikesTransform(spec pipeline.ChartSpec) pipeline.TransformerFunc[mapData, []render.Spike] {
	return func(ctx context.Context, in mapData) ([]render.Spike, error) {
		// Spikes anchor at lon/lat centroids; deck.gl projects for itself.
		features := geo.Join(in.metrics, in.geoms, geo.InnerJoin)
		spikes := make([]render.Spike, 0, len(features))
		for _, f := range features {
			lon, lat := geo.Centroid(f.GeometryRecord)
			spikes = append(spikes, render.Spike{
				Lon:   lon,
				Lat:   lat,
				Value: *f.Value,
				Name:  f.Name,
			})
		}
		return spikes, nil
	}
}

func spikesRender(spec pipeline.ChartSpec) pipeline.RendererFunc[[]render.Spike] {
	return func(ctx context.Context, spikes []render.Spike) ([]domain.Artifact, error) {
		body, err := render.SpikeMap{
			Title:  spec.Title,
			Source: spec.Source,
			Spikes: spikes,
		}.Render()
		if err != nil {
			return nil, err
		}
		app.metrics.RendersCompleted.WithLabelValues(spec.Kind).Inc()
		return []domain.Artifact{domain.NewArtifact(spec.Output, "text/html; charset=utf-8", body)}, nil
	}
}

// builtinCharts registers the standing newsletter charts; a charts file can
// add more without a rebuild.
func builtinCharts() (*pipeline.Registry, error) {
	r := pipeline.NewRegistry()
	specs := []pipeline.ChartSpec{
		{
			Name:      "county-pop-change",
			Kind:      pipeline.KindChoropleth,
			Title:     "Population change by county",
			Subtitle:  "Percent change, 2020 to 2024",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_county",
			Measure:   "population",
			FromYear:  2020,
			Year:      2024,
			Geography: "county",
			Join:      "left",
			Scale:     pipeline.ScaleSpec{Type: "diverging", Extent: 10},
			Output:    "maps/county-pop-change.svg",
		},
		{
			Name:      "state-pop-change",
			Kind:      pipeline.KindChoropleth,
			Title:     "Population change by state",
			Subtitle:  "Percent change, 2020 to 2025",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_state",
			Measure:   "population",
			FromYear:  2020,
			Year:      2025,
			Geography: "state",
			Join:      "left",
			Scale:     pipeline.ScaleSpec{Type: "diverging", Extent: 8},
			Labels: []pipeline.LabelSpec{
				{Text: "Texas", Lon: -99.3, Lat: 31.4},
				{Text: "Florida", Lon: -81.6, Lat: 28.1, DX: 30, DY: 18},
			},
			Output: "maps/state-pop-change.svg",
		},
		{
			Name:      "migration-mix-bivariate",
			Kind:      pipeline.KindChoropleth,
			Title:     "Who is moving in, and from where",
			Subtitle:  "Domestic vs. international migration by county, 2024",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_county",
			Year:      2024,
			Geography: "county",
			Join:      "left",
			XMeasure:  "domestic_migration",
			YMeasure:  "international_migration",
			Scale:     pipeline.ScaleSpec{Type: "bivariate"},
			Output:    "maps/migration-mix-bivariate.svg",
		},
		{
			Name:      "net-migration-spikes",
			Kind:      pipeline.KindSpikes,
			Title:     "Net migration by county, 2024",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_county",
			Measure:   "net_migration",
			Year:      2024,
			Geography: "county",
			Output:    "spikes/net-migration.html",
		},
		{
			Name:      "metro-growth-bubbles",
			Kind:      pipeline.KindBubbles,
			Title:     "Metro population, 2024",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_cbsa",
			Measure:   "population",
			Year:      2024,
			Geography: "cbsa",
			Output:    "maps/metro-growth-bubbles.svg",
		},
		{
			Name:      "county-population-hex",
			Kind:      pipeline.KindHexmap,
			Title:     "Where people live",
			Subtitle:  "Population on an equal-area hex grid, 2024",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_county",
			Measure:   "population",
			Year:      2024,
			Geography: "county",
			Scale:     pipeline.ScaleSpec{Type: "continuous", Min: 1000, Max: 10000000, Log: true},
			Output:    "maps/county-population-hex.svg",
		},
		{
			Name:      "births-vs-migration",
			Kind:      pipeline.KindScatter,
			Title:     "Natural change vs. net migration by state, 2024",
			Source:    "Source: Census Bureau Population Estimates Program",
			Dataset:   "popest_state",
			Year:      2024,
			Geography: "state",
			XMeasure:  "natural_change",
			YMeasure:  "net_migration",
			Output:    "charts/births-vs-migration.svg",
		},
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}
