package geo

import (
	"math"

	"github.com/hearthline/chartpress/internal/domain"
)

// Conus Albers equal-area parameters, the projection every continental map
// in the newsletter uses: standard parallels 29.5 and 45.5, origin 37.5N,
// central meridian 96W.
const (
	albersPhi1   = 29.5 * math.Pi / 180
	albersPhi2   = 45.5 * math.Pi / 180
	albersPhi0   = 37.5 * math.Pi / 180
	albersLambda = -96.0 * math.Pi / 180

	earthRadius = 6370997.0 // meters, sphere

	// SqMetersPerSqMile converts projected areas to square miles.
	SqMetersPerSqMile = 2589988.11
)

// AlbersUSA projects WGS-84 lon/lat to conus Albers equal-area x/y in
// meters. Spherical form; boundary-file coordinates don't carry enough
// precision for the ellipsoidal refinement to matter at map scale.
func AlbersUSA(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180

	n := (math.Sin(albersPhi1) + math.Sin(albersPhi2)) / 2
	c := math.Cos(albersPhi1)*math.Cos(albersPhi1) + 2*n*math.Sin(albersPhi1)
	rho := earthRadius / n * math.Sqrt(c-2*n*math.Sin(phi))
	rho0 := earthRadius / n * math.Sqrt(c-2*n*math.Sin(albersPhi0))
	theta := n * (lambda - albersLambda)

	x = rho * math.Sin(theta)
	y = rho0 - rho*math.Cos(theta)
	return x, y
}

// Project returns a copy of rec with every coordinate run through AlbersUSA.
func Project(rec domain.GeometryRecord) domain.GeometryRecord {
	out := domain.GeometryRecord{GeoID: rec.GeoID, Name: rec.Name}
	for _, ring := range rec.Rings {
		projected := make([][2]float64, len(ring))
		for i, pt := range ring {
			x, y := AlbersUSA(pt[0], pt[1])
			projected[i] = [2]float64{x, y}
		}
		out.Rings = append(out.Rings, projected)
	}
	if rec.Point != nil {
		x, y := AlbersUSA(rec.Point[0], rec.Point[1])
		out.Point = &[2]float64{x, y}
	}
	return out
}

// ProjectAll projects a geometry table in place order.
func ProjectAll(recs []domain.GeometryRecord) []domain.GeometryRecord {
	out := make([]domain.GeometryRecord, len(recs))
	for i, r := range recs {
		out[i] = Project(r)
	}
	return out
}

// Area returns the planar area of all rings in projected units (m² after
// AlbersUSA, which is equal-area by construction).
func Area(rec domain.GeometryRecord) float64 {
	var total float64
	for _, ring := range rec.Rings {
		total += math.Abs(shoelace(ring))
	}
	return total
}

// Centroid returns the area-weighted centroid of the largest ring, or the
// point for point records. Label placement and spike anchoring both use it.
func Centroid(rec domain.GeometryRecord) (x, y float64) {
	if rec.Point != nil {
		return rec.Point[0], rec.Point[1]
	}

	var best [][2]float64
	bestArea := -1.0
	for _, ring := range rec.Rings {
		if a := math.Abs(shoelace(ring)); a > bestArea {
			bestArea = a
			best = ring
		}
	}
	if best == nil {
		return 0, 0
	}
	return ringCentroid(best)
}

// Bounds returns the min/max corners over all records.
func Bounds(recs []domain.GeometryRecord) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, rec := range recs {
		for _, ring := range rec.Rings {
			for _, pt := range ring {
				grow(pt[0], pt[1])
			}
		}
		if rec.Point != nil {
			grow(rec.Point[0], rec.Point[1])
		}
	}
	return
}

// FilterByBounds keeps records whose centroid falls inside the box expanded
// by margin, how the maps drop far-flung metro fragments outside the conus
// frame.
func FilterByBounds(recs []domain.GeometryRecord, minX, minY, maxX, maxY, margin float64) []domain.GeometryRecord {
	var out []domain.GeometryRecord
	for _, rec := range recs {
		cx, cy := Centroid(rec)
		if cx >= minX-margin && cx <= maxX+margin && cy >= minY-margin && cy <= maxY+margin {
			out = append(out, rec)
		}
	}
	return out
}

func shoelace(ring [][2]float64) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}

func ringCentroid(ring [][2]float64) (x, y float64) {
	a := shoelace(ring)
	if a == 0 {
		// Degenerate ring: fall back to the vertex mean.
		for _, pt := range ring {
			x += pt[0]
			y += pt[1]
		}
		n := float64(len(ring))
		return x / n, y / n
	}
	for i := range ring {
		j := (i + 1) % len(ring)
		cross := ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
		x += (ring[i][0] + ring[j][0]) * cross
		y += (ring[i][1] + ring[j][1]) * cross
	}
	return x / (6 * a), y / (6 * a)
}
