package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
	"github.com/hearthline/chartpress/internal/render"
)

// Chart kinds.
const (
	KindChoropleth = "choropleth"
	KindHexmap     = "hexmap"
	KindBubbles    = "bubbles"
	KindScatter    = "scatter"
	KindSpikes     = "spikes"
)

// ChartSpec is a chart definition: everything that varies between charts of
// the same kind lives here as data, not code.
type ChartSpec struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Source   string `yaml:"source"`

	Dataset   string `yaml:"dataset"`
	Measure   string `yaml:"measure"`
	Denom     string `yaml:"denom,omitempty"` // per-capita denominator measure
	FromYear  int    `yaml:"from_year,omitempty"`
	Year      int    `yaml:"year"`
	Geography string `yaml:"geography"` // state, county, zcta, cbsa, puma
	Join      string `yaml:"join,omitempty"`

	// Second-measure axes: both required for kind scatter and for
	// bivariate choropleths.
	XMeasure string `yaml:"x_measure,omitempty"`
	YMeasure string `yaml:"y_measure,omitempty"`

	Scale  ScaleSpec   `yaml:"scale"`
	Labels []LabelSpec `yaml:"labels,omitempty"`
	Output string      `yaml:"output"`
}

// LabelSpec pins a text label to a lon/lat anchor, offset on screen by
// dx/dy pixels with a leader line back to the anchor.
type LabelSpec struct {
	Text string  `yaml:"text"`
	Lon  float64 `yaml:"lon"`
	Lat  float64 `yaml:"lat"`
	DX   float64 `yaml:"dx,omitempty"`
	DY   float64 `yaml:"dy,omitempty"`
}

// ScaleSpec configures the chart's color scale.
type ScaleSpec struct {
	Type   string  `yaml:"type"` // quantile, continuous, diverging
	Bins   int     `yaml:"bins,omitempty"`
	Min    float64 `yaml:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty"`
	Log    bool    `yaml:"log,omitempty"`
	Extent float64 `yaml:"extent,omitempty"`
}

var chartKinds = map[string]bool{
	KindChoropleth: true,
	KindHexmap:     true,
	KindBubbles:    true,
	KindScatter:    true,
	KindSpikes:     true,
}

func (s ChartSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("chart spec: name required")
	}
	if !chartKinds[s.Kind] {
		return fmt.Errorf("chart %s: unknown kind %q", s.Name, s.Kind)
	}
	if s.Output == "" {
		return fmt.Errorf("chart %s: output key required", s.Name)
	}
	switch s.Join {
	case "", "inner", "left":
	default:
		return fmt.Errorf("chart %s: join must be inner or left, got %q", s.Name, s.Join)
	}
	if s.Kind == KindScatter && (s.XMeasure == "" || s.YMeasure == "") {
		return fmt.Errorf("chart %s: scatter needs x_measure and y_measure", s.Name)
	}
	if s.Scale.Type == "bivariate" {
		if s.Kind != KindChoropleth {
			return fmt.Errorf("chart %s: bivariate scale requires kind choropleth, got %q", s.Name, s.Kind)
		}
		if s.XMeasure == "" || s.YMeasure == "" {
			return fmt.Errorf("chart %s: bivariate scale needs x_measure and y_measure", s.Name)
		}
	}
	return nil
}

// JoinType maps the spec's join name to the geo package's. The default is
// a left join so unmatched regions still draw in the no-data bin.
func (s ChartSpec) JoinType() geo.JoinType {
	if s.Join == "inner" {
		return geo.InnerJoin
	}
	return geo.LeftJoin
}

// ConfigID is a deterministic fingerprint of the parameters that change the
// chart's data. Two renders with the same ConfigID produce the same artifact.
func (s ChartSpec) ConfigID() string {
	return domain.RunID(s.Name, map[string]string{
		"dataset":   s.Dataset,
		"measure":   s.Measure,
		"denom":     s.Denom,
		"x_measure": s.XMeasure,
		"y_measure": s.YMeasure,
		"from_year": strconv.Itoa(s.FromYear),
		"year":      strconv.Itoa(s.Year),
		"geography": s.Geography,
		"join":      s.Join,
	})
}

// BuildScale constructs the color scale, using values for quantile
// thresholds.
func (s ScaleSpec) Build(values []float64) (render.Scale, error) {
	switch s.Type {
	case "quantile", "":
		bins := s.Bins
		if bins == 0 {
			bins = 5
		}
		ramp := make([]string, bins)
		for i := range ramp {
			ramp[i] = render.SequentialRampColor(i, bins)
		}
		return render.NewQuantileScale(values, ramp)
	case "continuous":
		if s.Max <= s.Min {
			return nil, fmt.Errorf("continuous scale: max %g must exceed min %g", s.Max, s.Min)
		}
		if s.Log && s.Min <= 0 {
			return nil, fmt.Errorf("continuous log scale: min %g must be positive", s.Min)
		}
		return render.ContinuousScale{Min: s.Min, Max: s.Max, Ramp: render.SequentialRamp, Log: s.Log}, nil
	case "diverging":
		if s.Extent <= 0 {
			return nil, fmt.Errorf("diverging scale: extent %g must be positive", s.Extent)
		}
		return render.DivergingScale{Extent: s.Extent, Ramp: render.DivergingRamp}, nil
	case "bivariate":
		return nil, fmt.Errorf("bivariate scale is built from two measures; use BuildBivariate")
	default:
		return nil, fmt.Errorf("unknown scale type %q", s.Type)
	}
}

// BuildBivariate terciles both measures and pairs the classes with the 3x3
// palette.
func (s ScaleSpec) BuildBivariate(xValues, yValues []float64) (render.BivariateScale, error) {
	xt := domain.QuantileBins(xValues, 3)
	yt := domain.QuantileBins(yValues, 3)
	if xt == nil || yt == nil {
		return render.BivariateScale{}, fmt.Errorf(
			"bivariate scale: need at least 3 values per axis, got %d and %d", len(xValues), len(yValues))
	}
	return render.BivariateScale{
		XThresholds: [2]float64{xt[0], xt[1]},
		YThresholds: [2]float64{yt[0], yt[1]},
		Palette:     render.BivariatePalette,
	}, nil
}

// Registry holds named chart specs.
type Registry struct {
	specs map[string]ChartSpec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ChartSpec)}
}

func (r *Registry) Register(spec ChartSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, ok := r.specs[spec.Name]; ok {
		return fmt.Errorf("chart %s: already registered", spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

func (r *Registry) Get(name string) (ChartSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names lists registered charts in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSpecs reads chart specs from a YAML stream, one document holding a
// list of charts, and registers each.
func (r *Registry) LoadSpecs(reader io.Reader) error {
	var doc struct {
		Charts []ChartSpec `yaml:"charts"`
	}
	dec := yaml.NewDecoder(reader)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode chart specs: %w", err)
	}
	for _, spec := range doc.Charts {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
