package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthline/chartpress/internal/domain"
)

func TestFixedScale(t *testing.T) {
	s := FixedScale{
		Thresholds: []float64{10, 20},
		Colors:     []string{"#111111", "#222222", "#333333"},
	}

	assert.Equal(t, "#111111", s.Color(domain.Float64(5)))
	assert.Equal(t, "#222222", s.Color(domain.Float64(15)))
	assert.Equal(t, "#333333", s.Color(domain.Float64(25)))
	assert.Equal(t, NoDataColor, s.Color(nil))
}

func TestNewQuantileScale(t *testing.T) {
	t.Run("splits into equal count bins", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
		s, err := NewQuantileScale(values, []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, s.Thresholds, 2)

		counts := make([]int, 3)
		for _, v := range values {
			counts[domain.AssignBin(v, s.Thresholds)]++
		}
		assert.Equal(t, []int{3, 3, 3}, counts)
	})

	t.Run("too few values", func(t *testing.T) {
		_, err := NewQuantileScale([]float64{1}, []string{"a", "b", "c"})
		assert.Error(t, err)
	})
}

func TestContinuousScale(t *testing.T) {
	s := ContinuousScale{Min: 0, Max: 100, Ramp: []string{"#000000", "#FFFFFF"}}

	assert.Equal(t, "#000000", s.Color(domain.Float64(0)))
	assert.Equal(t, "#FFFFFF", s.Color(domain.Float64(100)))
	assert.Equal(t, "#808080", s.Color(domain.Float64(50.2)))
	assert.Equal(t, NoDataColor, s.Color(nil))

	t.Run("clips out of range", func(t *testing.T) {
		assert.Equal(t, "#000000", s.Color(domain.Float64(-50)))
		assert.Equal(t, "#FFFFFF", s.Color(domain.Float64(500)))
	})

	t.Run("log transform centers ratios at one", func(t *testing.T) {
		// The home-value scale: ratios clipped to [0.05, 10], log spread.
		ls := ContinuousScale{Min: 0.05, Max: 10, Ramp: []string{"#000000", "#FFFFFF"}, Log: true}
		mid := ls.Color(domain.Float64(1))
		lo := ls.Color(domain.Float64(0.05))
		hi := ls.Color(domain.Float64(10))
		assert.Equal(t, "#000000", lo)
		assert.Equal(t, "#FFFFFF", hi)
		assert.NotEqual(t, lo, mid)
		assert.NotEqual(t, hi, mid)
		// Below-clip input resolves to the clip floor, not an error.
		assert.Equal(t, lo, ls.Color(domain.Float64(0.001)))
	})

	t.Run("degenerate bounds resolve to no-data", func(t *testing.T) {
		// A log scale with a zero floor has an infinite lower bound; a flat
		// scale has no span. Neither may panic.
		zeroFloor := ContinuousScale{Min: 0, Max: 100, Ramp: SequentialRamp, Log: true}
		assert.Equal(t, NoDataColor, zeroFloor.Color(domain.Float64(50)))

		flat := ContinuousScale{Min: 5, Max: 5, Ramp: SequentialRamp}
		assert.Equal(t, NoDataColor, flat.Color(domain.Float64(5)))
	})
}

func TestDivergingScale(t *testing.T) {
	s := DivergingScale{Extent: 10, Ramp: []string{"#FF0000", "#FFFFFF", "#0000FF"}}

	assert.Equal(t, "#FF0000", s.Color(domain.Float64(-10)))
	assert.Equal(t, "#FFFFFF", s.Color(domain.Float64(0)))
	assert.Equal(t, "#0000FF", s.Color(domain.Float64(10)))
	assert.Equal(t, "#0000FF", s.Color(domain.Float64(99)), "clips beyond extent")
	assert.Equal(t, NoDataColor, s.Color(nil))
}

func TestBivariateScale(t *testing.T) {
	s := BivariateScale{
		XThresholds: [2]float64{10, 20},
		YThresholds: [2]float64{100, 200},
		Palette:     BivariatePalette,
	}

	assert.Equal(t, BivariatePalette[0], s.ColorXY(domain.Float64(5), domain.Float64(50)))
	assert.Equal(t, BivariatePalette[8], s.ColorXY(domain.Float64(25), domain.Float64(250)))
	assert.Equal(t, BivariatePalette[5], s.ColorXY(domain.Float64(25), domain.Float64(150)))
	assert.Equal(t, NoDataColor, s.ColorXY(nil, domain.Float64(150)))
	assert.Equal(t, NoDataColor, s.ColorXY(domain.Float64(5), nil))
}

func TestRampColor(t *testing.T) {
	ramp := []string{"#000000", "#808080", "#FFFFFF"}
	assert.Equal(t, "#000000", rampColor(ramp, 0))
	assert.Equal(t, "#808080", rampColor(ramp, 0.5))
	assert.Equal(t, "#FFFFFF", rampColor(ramp, 1))
	assert.Equal(t, NoDataColor, rampColor(ramp, math.NaN()))
}
