package geo

import (
	"math"
	"sort"
)

// HexCell is one aggregated cell of an equal-area hex grid.
type HexCell struct {
	Q, R     int // axial coordinates
	CenterX  float64
	CenterY  float64
	Value    float64
	Count    int
}

// WeightedPoint carries a projected location and the quantity it
// contributes to its hex cell.
type WeightedPoint struct {
	X, Y  float64
	Value float64
}

// HexBin aggregates point values onto a pointy-top hexagonal grid. size is
// the center-to-vertex distance in projected units (the PUMA maps use 25km).
// Cells come back sorted by (R, Q) so output is deterministic.
func HexBin(points []WeightedPoint, size float64) []HexCell {
	type cellAgg struct {
		value float64
		count int
	}
	cells := map[[2]int]*cellAgg{}

	for _, p := range points {
		q, r := axialRound(
			(math.Sqrt(3)/3*p.X-p.Y/3)/size,
			(2.0/3.0*p.Y)/size,
		)
		key := [2]int{q, r}
		agg, ok := cells[key]
		if !ok {
			agg = &cellAgg{}
			cells[key] = agg
		}
		agg.value += p.Value
		agg.count++
	}

	out := make([]HexCell, 0, len(cells))
	for key, agg := range cells {
		q, r := key[0], key[1]
		out = append(out, HexCell{
			Q:       q,
			R:       r,
			CenterX: size * math.Sqrt(3) * (float64(q) + float64(r)/2),
			CenterY: size * 1.5 * float64(r),
			Value:   agg.value,
			Count:   agg.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].R != out[j].R {
			return out[i].R < out[j].R
		}
		return out[i].Q < out[j].Q
	})
	return out
}

// Vertices returns the six corners of a cell for drawing.
func (c HexCell) Vertices(size float64) [][2]float64 {
	verts := make([][2]float64, 6)
	for k := 0; k < 6; k++ {
		angle := math.Pi / 180 * (60*float64(k) - 30)
		verts[k] = [2]float64{
			c.CenterX + size*math.Cos(angle),
			c.CenterY + size*math.Sin(angle),
		}
	}
	return verts
}

// axialRound snaps fractional axial coordinates to the containing hex using
// cube coordinate rounding.
func axialRound(qf, rf float64) (int, int) {
	sf := -qf - rf

	q := math.Round(qf)
	r := math.Round(rf)
	s := math.Round(sf)

	dq := math.Abs(q - qf)
	dr := math.Abs(r - rf)
	ds := math.Abs(s - sf)

	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return int(q), int(r)
}
