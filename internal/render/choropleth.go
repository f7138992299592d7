package render

import (
	"bytes"
	"fmt"

	svg "github.com/ajstarks/svgo/float"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
)

// Label annotates a map location with text and a leader line from the
// anchor to the offset text position.
type Label struct {
	Text   string
	X, Y   float64 // anchor, projected coordinates
	DX, DY float64 // text offset in screen pixels
}

// Choropleth fills joined regions by their metric color over an optional
// state underlay.
type Choropleth struct {
	Frame    Frame
	Features []geo.JoinedFeature
	Underlay []domain.GeometryRecord
	Scale    Scale
	Labels   []Label

	// Fills overrides Scale with a precomputed color per feature, for maps
	// whose color depends on more than the joined value (bivariate). When
	// set it must be parallel to Features.
	Fills []string

	// Legend configuration; LegendFormat formats threshold values.
	LegendScale     *FixedScale
	LegendRamp      []string
	LegendMin       string
	LegendMax       string
	LegendFormat    func(float64) string
	LegendBivariate *BivariateScale
	LegendXLabel    string
	LegendYLabel    string
}

// Render draws the map and returns the finished SVG. Geometry is validated
// before any output is produced, so a malformed ring never yields a partial
// artifact.
func (c Choropleth) Render() ([]byte, error) {
	if len(c.Fills) > 0 && len(c.Fills) != len(c.Features) {
		return nil, fmt.Errorf("render choropleth: %d fills for %d features", len(c.Fills), len(c.Features))
	}
	for _, f := range c.Features {
		if err := f.GeometryRecord.Validate(); err != nil {
			return nil, fmt.Errorf("render choropleth: %w", err)
		}
	}
	for _, u := range c.Underlay {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("render choropleth underlay: %w", err)
		}
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(c.Frame.Width, c.Frame.Height)
	c.Frame.draw(canvas)

	all := make([]domain.GeometryRecord, 0, len(c.Features)+len(c.Underlay))
	for _, f := range c.Features {
		all = append(all, f.GeometryRecord)
	}
	all = append(all, c.Underlay...)
	minX, minY, maxX, maxY := geo.Bounds(all)
	vp := newViewport(c.Frame, minX, minY, maxX, maxY)

	for _, u := range c.Underlay {
		drawRings(canvas, vp, u.Rings,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.5;stroke-opacity:0.4", BrandTint, BrandInk))
	}
	for i, f := range c.Features {
		fill := ""
		if len(c.Fills) > 0 {
			fill = c.Fills[i]
		} else {
			fill = c.Scale.Color(f.Value)
		}
		drawRings(canvas, vp, f.Rings,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.3", fill, BrandPaper))
	}

	for _, l := range c.Labels {
		ax, ay := vp.xy(l.X, l.Y)
		tx, ty := ax+l.DX, ay+l.DY
		if l.DX != 0 || l.DY != 0 {
			canvas.Line(ax, ay, tx, ty,
				fmt.Sprintf("stroke:%s;stroke-width:1", BrandInk))
		}
		anchor := "start"
		if l.DX < 0 {
			anchor = "end"
		}
		canvas.Text(tx, ty-3, l.Text,
			fmt.Sprintf("font-family:sans-serif;font-size:13px;fill:%s;text-anchor:%s", BrandInk, anchor))
	}

	legendY := c.Frame.contentBottom() - 30
	if c.LegendBivariate != nil {
		drawBivariateLegend(canvas, *c.LegendBivariate, c.LegendXLabel, c.LegendYLabel, 40, legendY-40)
	} else if c.LegendScale != nil {
		drawColorbar(canvas, *c.LegendScale, c.LegendFormat, 40, legendY, 280)
	} else if len(c.LegendRamp) > 0 {
		drawRamp(canvas, c.LegendRamp, c.LegendMin, c.LegendMax, 40, legendY, 280)
	}

	canvas.End()
	return buf.Bytes(), nil
}

func drawRings(canvas *svg.SVG, vp viewport, rings [][][2]float64, style string) {
	for _, ring := range rings {
		xs := make([]float64, len(ring))
		ys := make([]float64, len(ring))
		for i, pt := range ring {
			xs[i], ys[i] = vp.xy(pt[0], pt[1])
		}
		canvas.Polygon(xs, ys, style)
	}
}
