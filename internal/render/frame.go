package render

import (
	"fmt"
	"math"

	svg "github.com/ajstarks/svgo/float"

	"github.com/hearthline/chartpress/internal/domain"
)

// Frame carries the chrome shared by every SVG artifact: canvas size, the
// title block across the top and the source line along the bottom.
type Frame struct {
	Width    float64
	Height   float64
	Title    string
	Subtitle string
	Source   string
}

// DefaultFrame is sized for the newsletter's column width.
func DefaultFrame(title, subtitle, source string) Frame {
	return Frame{Width: 1200, Height: 800, Title: title, Subtitle: subtitle, Source: source}
}

// contentTop returns the y where map or plot content may begin, below the
// title block.
func (f Frame) contentTop() float64 {
	top := 20.0
	if f.Title != "" {
		top += 36
	}
	if f.Subtitle != "" {
		top += 24
	}
	return top
}

func (f Frame) contentBottom() float64 {
	bottom := f.Height - 20
	if f.Source != "" {
		bottom -= 24
	}
	return bottom
}

func (f Frame) draw(canvas *svg.SVG) {
	canvas.Rect(0, 0, f.Width, f.Height, "fill:"+BrandPaper)
	y := 20.0
	if f.Title != "" {
		y += 28
		canvas.Text(40, y, f.Title,
			fmt.Sprintf("font-family:sans-serif;font-size:28px;font-weight:bold;fill:%s", BrandInk))
		y += 8
	}
	if f.Subtitle != "" {
		y += 18
		canvas.Text(40, y, f.Subtitle,
			fmt.Sprintf("font-family:sans-serif;font-size:18px;fill:%s", BrandInk))
	}
	if f.Source != "" {
		canvas.Text(40, f.Height-20, f.Source,
			fmt.Sprintf("font-family:sans-serif;font-size:12px;fill:%s;fill-opacity:0.7", BrandInk))
	}
}

// viewport maps projected coordinates into the frame's content area,
// preserving aspect ratio and flipping y for SVG's downward axis.
type viewport struct {
	scale      float64
	offX, offY float64
	minX, maxY float64
}

func newViewport(f Frame, minX, minY, maxX, maxY float64) viewport {
	const pad = 40.0
	availW := f.Width - 2*pad
	availH := f.contentBottom() - f.contentTop() - pad

	spanX, spanY := maxX-minX, maxY-minY
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}
	scale := math.Min(availW/spanX, availH/spanY)

	return viewport{
		scale: scale,
		offX:  pad + (availW-spanX*scale)/2,
		offY:  f.contentTop() + (availH-spanY*scale)/2,
		minX:  minX,
		maxY:  maxY,
	}
}

func (v viewport) xy(x, y float64) (float64, float64) {
	return v.offX + (x-v.minX)*v.scale, v.offY + (v.maxY-y)*v.scale
}

// drawColorbar draws a horizontal legend from a binned scale, one swatch per
// color with threshold labels between swatches.
func drawColorbar(canvas *svg.SVG, s FixedScale, format func(float64) string, x, y, w float64) {
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%g", v) }
	}
	swatchW := w / float64(len(s.Colors))
	const swatchH = 14.0
	for i, color := range s.Colors {
		canvas.Rect(x+float64(i)*swatchW, y, swatchW, swatchH,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.5", color, BrandInk))
	}
	for i, t := range s.Thresholds {
		canvas.Text(x+float64(i+1)*swatchW, y+swatchH+14, format(t),
			fmt.Sprintf("font-family:sans-serif;font-size:11px;fill:%s;text-anchor:middle", BrandInk))
	}
}

// drawBivariateLegend draws the 3x3 palette grid with the low-low cell at
// the bottom left; x classes grow rightward, y classes grow upward.
func drawBivariateLegend(canvas *svg.SVG, s BivariateScale, xLabel, yLabel string, x, y float64) {
	const sw = 18.0
	for yc := 0; yc < 3; yc++ {
		for xc := 0; xc < 3; xc++ {
			canvas.Rect(x+float64(xc)*sw, y+float64(2-yc)*sw, sw, sw,
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.5",
					s.Palette[domain.BivariateClass(xc, yc)], BrandInk))
		}
	}
	style := fmt.Sprintf("font-family:sans-serif;font-size:11px;fill:%s", BrandInk)
	if xLabel != "" {
		canvas.Text(x, y+3*sw+12, xLabel, style+";text-anchor:start")
	}
	if yLabel != "" {
		canvas.TranslateRotate(x-6, y+3*sw, -90)
		canvas.Text(0, 0, yLabel, style+";text-anchor:start")
		canvas.Gend()
	}
}

// drawRamp draws a continuous legend by sampling the ramp in narrow slices.
func drawRamp(canvas *svg.SVG, ramp []string, minLabel, maxLabel string, x, y, w float64) {
	const slices = 64
	const h = 14.0
	sw := w / slices
	for i := 0; i < slices; i++ {
		t := float64(i) / (slices - 1)
		canvas.Rect(x+float64(i)*sw, y, sw+0.5, h, "fill:"+rampColor(ramp, t))
	}
	style := fmt.Sprintf("font-family:sans-serif;font-size:11px;fill:%s", BrandInk)
	canvas.Text(x, y+h+14, minLabel, style+";text-anchor:start")
	canvas.Text(x+w, y+h+14, maxLabel, style+";text-anchor:end")
}
