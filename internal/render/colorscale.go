// Package render draws the newsletter's static artifacts: SVG choropleths,
// hex maps, bubble maps and scatter plots, plus the self-contained deck.gl
// HTML for 3D spike maps. Everything is single pass; renderers write a
// finished byte stream and never read it back.
package render

import (
	"fmt"
	"math"

	"github.com/hearthline/chartpress/internal/domain"
)

// Brand palette.
const (
	BrandBlue  = "#0BB4FF"
	BrandInk   = "#3D3733"
	BrandPaper = "#F6F7F3"
	BrandTint  = "#EDEFE7"

	// NoDataColor fills geographies that survive a left join with no metric.
	NoDataColor = "#E0E0E0"
)

// SequentialRamp is the default light-to-brand-blue ramp.
var SequentialRamp = []string{BrandTint, "#9ADBF7", BrandBlue, "#0077B6", "#03045E"}

// DivergingRamp runs red through paper to brand blue, for signed measures
// like net migration.
var DivergingRamp = []string{"#C1121F", "#E8A49B", BrandPaper, "#8AD4F5", BrandBlue}

// BivariatePalette is the 3x3 grid for two-variable maps, indexed by
// domain.BivariateClass (row = y class, column = x class).
var BivariatePalette = [9]string{
	"#E8E8E8", "#A7D4E4", "#5AC8D8",
	"#E4ACAC", "#A7A7CE", "#5A9EC8",
	"#C85A5A", "#A75A8E", "#5A5AA0",
}

// Scale maps a metric value to a fill color. A nil value always resolves to
// the no-data color.
type Scale interface {
	Color(v *float64) string
}

// FixedScale bins values against explicit ascending thresholds; values below
// the first threshold get colors[0], and so on. len(colors) must be
// len(thresholds)+1.
type FixedScale struct {
	Thresholds []float64
	Colors     []string
}

func (s FixedScale) Color(v *float64) string {
	if v == nil {
		return NoDataColor
	}
	return s.Colors[domain.AssignBin(*v, s.Thresholds)]
}

// NewQuantileScale builds a FixedScale whose thresholds split values into
// len(colors) equal-count bins.
func NewQuantileScale(values []float64, colors []string) (FixedScale, error) {
	if len(colors) < 2 {
		return FixedScale{}, fmt.Errorf("quantile scale needs at least 2 colors, got %d", len(colors))
	}
	thresholds := domain.QuantileBins(values, len(colors))
	if thresholds == nil {
		return FixedScale{}, fmt.Errorf("quantile scale: %d values cannot fill %d bins", len(values), len(colors))
	}
	return FixedScale{Thresholds: thresholds, Colors: colors}, nil
}

// ContinuousScale interpolates along a ramp between Min and Max. With Log
// set, values are clipped to [Min, Max] and spread on a log10 axis, the
// scale the home-value choropleths use (clip 0.05..10 around a ratio of 1).
type ContinuousScale struct {
	Min, Max float64
	Ramp     []string
	Log      bool
}

func (s ContinuousScale) Color(v *float64) string {
	if v == nil {
		return NoDataColor
	}
	lo, hi, x := s.Min, s.Max, *v
	if s.Log {
		x = math.Log10(clamp(x, lo, hi))
		lo, hi = math.Log10(lo), math.Log10(hi)
	}
	t := (x - lo) / (hi - lo)
	return rampColor(s.Ramp, clamp(t, 0, 1))
}

// DivergingScale is a continuous ramp centered on zero, symmetric out to
// Extent on both sides.
type DivergingScale struct {
	Extent float64
	Ramp   []string
}

func (s DivergingScale) Color(v *float64) string {
	if v == nil {
		return NoDataColor
	}
	t := (clamp(*v, -s.Extent, s.Extent) + s.Extent) / (2 * s.Extent)
	return rampColor(s.Ramp, t)
}

// BivariateScale classifies two values against per-axis thresholds and picks
// from the 3x3 palette. Color uses only the X value; use ColorXY.
type BivariateScale struct {
	XThresholds [2]float64
	YThresholds [2]float64
	Palette     [9]string
}

func (s BivariateScale) ColorXY(x, y *float64) string {
	if x == nil || y == nil {
		return NoDataColor
	}
	xc := domain.AssignBin(*x, s.XThresholds[:])
	yc := domain.AssignBin(*y, s.YThresholds[:])
	return s.Palette[domain.BivariateClass(xc, yc)]
}

func (s BivariateScale) Color(v *float64) string {
	if v == nil {
		return NoDataColor
	}
	return s.Palette[domain.AssignBin(*v, s.XThresholds[:])]
}

// SequentialRampColor samples the sequential ramp at bin i of n, for
// building discrete swatch sets from the continuous ramp.
func SequentialRampColor(i, n int) string {
	if n <= 1 {
		return SequentialRamp[len(SequentialRamp)-1]
	}
	return rampColor(SequentialRamp, float64(i)/float64(n-1))
}

// rampColor linearly interpolates a hex color at position t in [0,1] along
// the ramp stops. A NaN position (a degenerate scale, e.g. min == max or a
// log scale with a zero floor) resolves to the no-data color rather than
// indexing the ramp.
func rampColor(ramp []string, t float64) string {
	if math.IsNaN(t) {
		return NoDataColor
	}
	if len(ramp) == 1 {
		return ramp[0]
	}
	pos := t * float64(len(ramp)-1)
	i := int(pos)
	if i >= len(ramp)-1 {
		return ramp[len(ramp)-1]
	}
	frac := pos - float64(i)
	r0, g0, b0 := parseHex(ramp[i])
	r1, g1, b1 := parseHex(ramp[i+1])
	return fmt.Sprintf("#%02X%02X%02X",
		lerpByte(r0, r1, frac), lerpByte(g0, g1, frac), lerpByte(b0, b1, frac))
}

func parseHex(s string) (r, g, b int) {
	fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	return
}

func lerpByte(a, b int, t float64) int {
	return int(math.Round(float64(a) + t*(float64(b)-float64(a))))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
