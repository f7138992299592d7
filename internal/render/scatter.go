package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	svg "github.com/ajstarks/svgo/float"
)

// ScatterPoint is one observation on a scatter plot; a non-empty Label is
// drawn next to the marker.
type ScatterPoint struct {
	X, Y  float64
	Label string
	Color string // empty means brand blue
}

// Scatter draws a labeled scatter plot with axes and tick labels.
type Scatter struct {
	Frame  Frame
	Points []ScatterPoint
	XLabel string
	YLabel string
}

func (s Scatter) Render() ([]byte, error) {
	if len(s.Points) == 0 {
		return nil, errors.New("render scatter: no points")
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range s.Points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	// Pad the data range so edge points don't sit on the axes.
	padX := (maxX - minX) * 0.05
	padY := (maxY - minY) * 0.05
	if padX == 0 {
		padX = 1
	}
	if padY == 0 {
		padY = 1
	}
	vpMinX, vpMaxX := minX-padX, maxX+padX
	vpMinY, vpMaxY := minY-padY, maxY+padY

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(s.Frame.Width, s.Frame.Height)
	s.Frame.draw(canvas)

	vp := newViewport(s.Frame, vpMinX, vpMinY, vpMaxX, vpMaxY)
	axisStyle := fmt.Sprintf("stroke:%s;stroke-width:1", BrandInk)
	textStyle := fmt.Sprintf("font-family:sans-serif;font-size:12px;fill:%s", BrandInk)

	x0, y0 := vp.xy(vpMinX, vpMinY)
	x1, yTop := vp.xy(vpMaxX, vpMaxY)
	canvas.Line(x0, y0, x1, y0, axisStyle)
	canvas.Line(x0, y0, x0, yTop, axisStyle)

	for _, t := range axisTicks(minX, maxX) {
		tx, _ := vp.xy(t, vpMinY)
		canvas.Line(tx, y0, tx, y0+5, axisStyle)
		canvas.Text(tx, y0+18, formatTick(t), textStyle+";text-anchor:middle")
	}
	for _, t := range axisTicks(minY, maxY) {
		_, ty := vp.xy(vpMinX, t)
		canvas.Line(x0-5, ty, x0, ty, axisStyle)
		canvas.Text(x0-8, ty+4, formatTick(t), textStyle+";text-anchor:end")
	}

	if s.XLabel != "" {
		canvas.Text((x0+x1)/2, y0+38, s.XLabel, textStyle+";text-anchor:middle")
	}
	if s.YLabel != "" {
		canvas.TranslateRotate(x0-46, (y0+yTop)/2, -90)
		canvas.Text(0, 0, s.YLabel, textStyle+";text-anchor:middle")
		canvas.Gend()
	}

	for _, p := range s.Points {
		color := p.Color
		if color == "" {
			color = BrandBlue
		}
		px, py := vp.xy(p.X, p.Y)
		canvas.Circle(px, py, 4,
			fmt.Sprintf("fill:%s;fill-opacity:0.8;stroke:%s;stroke-width:0.5", color, BrandInk))
		if p.Label != "" {
			canvas.Text(px+6, py-6, p.Label, textStyle)
		}
	}

	canvas.End()
	return buf.Bytes(), nil
}

// axisTicks picks about five round-number ticks covering [lo, hi].
func axisTicks(lo, hi float64) []float64 {
	if hi <= lo {
		return []float64{lo}
	}
	step := math.Pow(10, math.Floor(math.Log10((hi-lo)/5)))
	for (hi-lo)/step > 8 {
		step *= 2
	}
	var ticks []float64
	for t := math.Ceil(lo/step) * step; t <= hi; t += step {
		ticks = append(ticks, t)
	}
	return ticks
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e7 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}
