package render

import (
	"bytes"
	"errors"
	"fmt"

	svg "github.com/ajstarks/svgo/float"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
)

// HexMap draws an aggregated hex grid over an optional state underlay, the
// cartogram style of the density maps.
type HexMap struct {
	Frame    Frame
	Cells    []geo.HexCell
	HexSize  float64
	Underlay []domain.GeometryRecord
	Scale    Scale

	LegendRamp []string
	LegendMin  string
	LegendMax  string
}

func (h HexMap) Render() ([]byte, error) {
	if len(h.Cells) == 0 {
		return nil, errors.New("render hexmap: no cells")
	}
	if h.HexSize <= 0 {
		return nil, fmt.Errorf("render hexmap: hex size %g", h.HexSize)
	}
	for _, u := range h.Underlay {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("render hexmap underlay: %w", err)
		}
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(h.Frame.Width, h.Frame.Height)
	h.Frame.draw(canvas)

	minX, minY, maxX, maxY := h.bounds()
	vp := newViewport(h.Frame, minX, minY, maxX, maxY)

	for _, u := range h.Underlay {
		drawRings(canvas, vp, u.Rings,
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:0.5;stroke-opacity:0.4", BrandInk))
	}

	for _, cell := range h.Cells {
		verts := cell.Vertices(h.HexSize)
		xs := make([]float64, len(verts))
		ys := make([]float64, len(verts))
		for i, v := range verts {
			xs[i], ys[i] = vp.xy(v[0], v[1])
		}
		canvas.Polygon(xs, ys, "fill:"+h.Scale.Color(domain.Float64(cell.Value)))
	}

	if len(h.LegendRamp) > 0 {
		drawRamp(canvas, h.LegendRamp, h.LegendMin, h.LegendMax, 40, h.Frame.contentBottom()-30, 280)
	}

	canvas.End()
	return buf.Bytes(), nil
}

func (h HexMap) bounds() (minX, minY, maxX, maxY float64) {
	if len(h.Underlay) > 0 {
		return geo.Bounds(h.Underlay)
	}
	recs := make([]domain.GeometryRecord, len(h.Cells))
	for i, c := range h.Cells {
		recs[i] = domain.GeometryRecord{Point: &[2]float64{c.CenterX, c.CenterY}}
	}
	minX, minY, maxX, maxY = geo.Bounds(recs)
	minX -= h.HexSize
	minY -= h.HexSize
	maxX += h.HexSize
	maxY += h.HexSize
	return
}
