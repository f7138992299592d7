package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentChange(t *testing.T) {
	t.Run("basic change", func(t *testing.T) {
		got := PercentChange(Float64(200), Float64(250))
		require.NotNil(t, got)
		assert.InDelta(t, 25.0, *got, 1e-9)
	})

	t.Run("decline", func(t *testing.T) {
		got := PercentChange(Float64(500000), Float64(450000))
		require.NotNil(t, got)
		assert.InDelta(t, -10.0, *got, 1e-9)
	})

	t.Run("zero base is undefined, not zero", func(t *testing.T) {
		assert.Nil(t, PercentChange(Float64(0), Float64(100)))
	})

	t.Run("missing inputs", func(t *testing.T) {
		assert.Nil(t, PercentChange(nil, Float64(100)))
		assert.Nil(t, PercentChange(Float64(100), nil))
	})
}

func TestPerCapita(t *testing.T) {
	t.Run("per ten thousand", func(t *testing.T) {
		got := PerCapita(Float64(42), Float64(210000), 10000)
		require.NotNil(t, got)
		assert.InDelta(t, 2.0, *got, 1e-9)
	})

	t.Run("zero population", func(t *testing.T) {
		assert.Nil(t, PerCapita(Float64(10), Float64(0), 10000))
	})

	t.Run("missing count", func(t *testing.T) {
		assert.Nil(t, PerCapita(nil, Float64(1000), 10000))
	})
}

func TestQuantileBins(t *testing.T) {
	t.Run("quintiles of 1..10", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		thresholds := QuantileBins(values, 5)
		require.Len(t, thresholds, 4)
		assert.InDelta(t, 2.8, thresholds[0], 1e-9)
		assert.InDelta(t, 4.6, thresholds[1], 1e-9)
		assert.InDelta(t, 6.4, thresholds[2], 1e-9)
		assert.InDelta(t, 8.2, thresholds[3], 1e-9)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		a := QuantileBins([]float64{5, 1, 9, 3, 7}, 2)
		b := QuantileBins([]float64{1, 3, 5, 7, 9}, 2)
		assert.Equal(t, b, a)
	})

	t.Run("too few values", func(t *testing.T) {
		assert.Nil(t, QuantileBins([]float64{1, 2}, 5))
	})
}

func TestAssignBin(t *testing.T) {
	thresholds := []float64{10, 20, 30}

	cases := []struct {
		value float64
		want  int
	}{
		{5, 0},
		{10, 1},
		{19.9, 1},
		{25, 2},
		{30, 3},
		{100, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AssignBin(tc.value, thresholds), "value %v", tc.value)
	}
}

func TestBivariateClass(t *testing.T) {
	assert.Equal(t, 0, BivariateClass(0, 0))
	assert.Equal(t, 2, BivariateClass(2, 0))
	assert.Equal(t, 4, BivariateClass(1, 1))
	assert.Equal(t, 8, BivariateClass(2, 2))

	t.Run("out-of-range terciles clamp", func(t *testing.T) {
		assert.Equal(t, 0, BivariateClass(-1, -3))
		assert.Equal(t, 8, BivariateClass(5, 9))
	})
}
