package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	svg "github.com/ajstarks/svgo/float"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/geo"
)

// BubbleMap draws graduated circles at feature centroids, area proportional
// to the metric value. Features with nil values are skipped.
type BubbleMap struct {
	Frame     Frame
	Features  []geo.JoinedFeature
	Underlay  []domain.GeometryRecord
	MaxRadius float64 // screen pixels for the largest value
	Fill      string
}

func (b BubbleMap) Render() ([]byte, error) {
	if b.MaxRadius <= 0 {
		return nil, fmt.Errorf("render bubbles: max radius %g", b.MaxRadius)
	}
	for _, u := range b.Underlay {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("render bubbles underlay: %w", err)
		}
	}

	vals := geo.Values(b.Features)
	if len(vals) == 0 {
		return nil, errors.New("render bubbles: no values")
	}
	var maxVal float64
	for _, v := range vals {
		maxVal = math.Max(maxVal, math.Abs(v))
	}
	if maxVal == 0 {
		return nil, errors.New("render bubbles: all values are zero")
	}

	fill := b.Fill
	if fill == "" {
		fill = BrandBlue
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(b.Frame.Width, b.Frame.Height)
	b.Frame.draw(canvas)

	all := make([]domain.GeometryRecord, 0, len(b.Features)+len(b.Underlay))
	for _, f := range b.Features {
		all = append(all, f.GeometryRecord)
	}
	all = append(all, b.Underlay...)
	minX, minY, maxX, maxY := geo.Bounds(all)
	vp := newViewport(b.Frame, minX, minY, maxX, maxY)

	for _, u := range b.Underlay {
		drawRings(canvas, vp, u.Rings,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.5;stroke-opacity:0.4", BrandTint, BrandInk))
	}

	// Largest bubbles first so small ones stay visible on top.
	drawn := make([]geo.JoinedFeature, 0, len(b.Features))
	for _, f := range b.Features {
		if f.Value != nil {
			drawn = append(drawn, f)
		}
	}
	sort.SliceStable(drawn, func(i, j int) bool {
		return math.Abs(*drawn[i].Value) > math.Abs(*drawn[j].Value)
	})
	for _, f := range drawn {
		cx, cy := geo.Centroid(f.GeometryRecord)
		sx, sy := vp.xy(cx, cy)
		r := b.MaxRadius * math.Sqrt(math.Abs(*f.Value)/maxVal)
		canvas.Circle(sx, sy, r,
			fmt.Sprintf("fill:%s;fill-opacity:0.6;stroke:%s;stroke-width:0.8", fill, BrandInk))
	}

	canvas.End()
	return buf.Bytes(), nil
}
