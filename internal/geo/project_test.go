package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthline/chartpress/internal/domain"
)

func TestAlbersUSA(t *testing.T) {
	t.Run("projection origin maps to origin", func(t *testing.T) {
		x, y := AlbersUSA(-96.0, 37.5)
		assert.InDelta(t, 0, x, 1e-6)
		assert.InDelta(t, 0, y, 1e-6)
	})

	t.Run("orientation", func(t *testing.T) {
		x, _ := AlbersUSA(-75.0, 40.0) // east of the central meridian
		assert.Greater(t, x, 0.0)
		x, _ = AlbersUSA(-120.0, 40.0)
		assert.Less(t, x, 0.0)
		_, y := AlbersUSA(-96.0, 45.0) // north of the origin
		assert.Greater(t, y, 0.0)
	})

	t.Run("equal area property", func(t *testing.T) {
		// Two one-degree squares at the same latitude must keep equal
		// projected area wherever they sit on the map.
		square := func(lon, lat float64) domain.GeometryRecord {
			return Project(domain.GeometryRecord{
				GeoID: "sq",
				Rings: [][][2]float64{{
					{lon, lat}, {lon + 1, lat}, {lon + 1, lat + 1}, {lon, lat + 1},
				}},
			})
		}
		east := Area(square(-80, 38))
		west := Area(square(-115, 38))
		assert.InEpsilon(t, east, west, 0.01)
	})
}

func TestCentroidAndBounds(t *testing.T) {
	rec := domain.GeometryRecord{
		GeoID: "unit",
		Rings: [][][2]float64{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
			{{100, 100}, {101, 100}, {101, 101}}, // small satellite ring
		},
	}

	t.Run("centroid uses the largest ring", func(t *testing.T) {
		x, y := Centroid(rec)
		assert.InDelta(t, 5, x, 1e-9)
		assert.InDelta(t, 5, y, 1e-9)
	})

	t.Run("point records pass through", func(t *testing.T) {
		pt := domain.GeometryRecord{GeoID: "p", Point: &[2]float64{3, 4}}
		x, y := Centroid(pt)
		assert.Equal(t, 3.0, x)
		assert.Equal(t, 4.0, y)
	})

	t.Run("bounds span every ring", func(t *testing.T) {
		minX, minY, maxX, maxY := Bounds([]domain.GeometryRecord{rec})
		assert.Equal(t, 0.0, minX)
		assert.Equal(t, 0.0, minY)
		assert.Equal(t, 101.0, maxX)
		assert.Equal(t, 101.0, maxY)
	})

	t.Run("filter drops far-flung fragments", func(t *testing.T) {
		near := domain.GeometryRecord{GeoID: "near", Point: &[2]float64{5, 5}}
		far := domain.GeometryRecord{GeoID: "far", Point: &[2]float64{500, 500}}
		kept := FilterByBounds([]domain.GeometryRecord{near, far}, 0, 0, 10, 10, 1)
		require.Len(t, kept, 1)
		assert.Equal(t, "near", kept[0].GeoID)
	})
}

func TestHexBin(t *testing.T) {
	const size = 25000.0

	t.Run("nearby points share a cell", func(t *testing.T) {
		cells := HexBin([]WeightedPoint{
			{X: 0, Y: 0, Value: 10},
			{X: 100, Y: 100, Value: 5},
		}, size)
		require.Len(t, cells, 1)
		assert.Equal(t, 15.0, cells[0].Value)
		assert.Equal(t, 2, cells[0].Count)
	})

	t.Run("distant points split", func(t *testing.T) {
		cells := HexBin([]WeightedPoint{
			{X: 0, Y: 0, Value: 1},
			{X: 10 * size, Y: 0, Value: 1},
		}, size)
		assert.Len(t, cells, 2)
	})

	t.Run("value conservation", func(t *testing.T) {
		points := []WeightedPoint{
			{X: 0, Y: 0, Value: 3},
			{X: 40000, Y: -20000, Value: 7},
			{X: -90000, Y: 60000, Value: 11},
			{X: 41000, Y: -21000, Value: 2},
		}
		var total float64
		for _, c := range HexBin(points, size) {
			total += c.Value
		}
		assert.InDelta(t, 23, total, 1e-9)
	})

	t.Run("deterministic order", func(t *testing.T) {
		points := []WeightedPoint{
			{X: 10 * size, Y: 0, Value: 1},
			{X: 0, Y: 0, Value: 1},
			{X: 0, Y: 10 * size, Value: 1},
		}
		a := HexBin(points, size)
		b := HexBin([]WeightedPoint{points[2], points[0], points[1]}, size)
		assert.Equal(t, a, b)
	})

	t.Run("vertices form a hexagon around the center", func(t *testing.T) {
		cells := HexBin([]WeightedPoint{{X: 0, Y: 0, Value: 1}}, size)
		require.Len(t, cells, 1)
		verts := cells[0].Vertices(size)
		require.Len(t, verts, 6)
		for _, v := range verts {
			d := math.Hypot(v[0]-cells[0].CenterX, v[1]-cells[0].CenterY)
			assert.InDelta(t, size, d, 1e-6)
		}
	})
}
