package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthline/chartpress/internal/domain"
)

func zipGeoms() []domain.GeometryRecord {
	ring := [][][2]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	return []domain.GeometryRecord{
		{GeoID: "10001", Name: "10001", Rings: ring},
		{GeoID: "10002", Name: "10002", Rings: ring},
	}
}

func TestJoin(t *testing.T) {
	t.Run("inner drops null metric", func(t *testing.T) {
		metrics := map[string]*float64{
			"10001": domain.Float64(500000),
			"10002": nil,
		}
		joined := Join(metrics, zipGeoms(), InnerJoin)
		require.Len(t, joined, 1)
		assert.Equal(t, "10001", joined[0].GeoID)
		require.NotNil(t, joined[0].Value)
		assert.Equal(t, 500000.0, *joined[0].Value)
	})

	t.Run("left keeps null metric as no data", func(t *testing.T) {
		metrics := map[string]*float64{
			"10001": domain.Float64(500000),
			"10002": nil,
		}
		joined := Join(metrics, zipGeoms(), LeftJoin)
		require.Len(t, joined, 2)
		assert.Equal(t, "10001", joined[0].GeoID)
		assert.Nil(t, joined[1].Value, "missing metric renders in the no-data bin")
	})

	t.Run("left keeps geometry missing from metrics", func(t *testing.T) {
		metrics := map[string]*float64{"10001": domain.Float64(1)}
		joined := Join(metrics, zipGeoms(), LeftJoin)
		require.Len(t, joined, 2)
		assert.Nil(t, joined[1].Value)
	})

	t.Run("metric keys without geometry are dropped", func(t *testing.T) {
		metrics := map[string]*float64{
			"10001": domain.Float64(1),
			"99999": domain.Float64(2),
		}
		for _, how := range []JoinType{InnerJoin, LeftJoin} {
			joined := Join(metrics, zipGeoms(), how)
			for _, f := range joined {
				assert.NotEqual(t, "99999", f.GeoID)
			}
		}
	})

	t.Run("matched count bounded by both tables", func(t *testing.T) {
		metrics := map[string]*float64{
			"10001": domain.Float64(1),
			"10002": domain.Float64(2),
			"10003": domain.Float64(3),
		}
		geoms := zipGeoms()
		joined := Join(metrics, geoms, InnerJoin)
		assert.LessOrEqual(t, len(joined), len(metrics))
		assert.LessOrEqual(t, len(joined), len(geoms))
	})

	t.Run("preserves geometry order", func(t *testing.T) {
		metrics := map[string]*float64{
			"10002": domain.Float64(2),
			"10001": domain.Float64(1),
		}
		joined := Join(metrics, zipGeoms(), InnerJoin)
		require.Len(t, joined, 2)
		assert.Equal(t, "10001", joined[0].GeoID)
		assert.Equal(t, "10002", joined[1].GeoID)
	})
}

func TestValues(t *testing.T) {
	joined := []JoinedFeature{
		{Value: domain.Float64(3)},
		{Value: nil},
		{Value: domain.Float64(1)},
	}
	assert.Equal(t, []float64{3, 1}, Values(joined))
}
