package warehouse

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func obs(geo string, year int, measure string, value *float64) domain.Observation {
	return domain.Observation{GeoID: geo, Year: year, Measure: measure, Value: value}
}

func TestInsertAndSlice(t *testing.T) {
	w := testWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Insert(ctx, "popest", []domain.Observation{
		obs("48113", 2024, "population", domain.Float64(2_600_000)),
		obs("06075", 2024, "population", domain.Float64(808_000)),
		obs("06075", 2024, "domestic_migration", nil),
	}))

	slice, err := w.Slice(ctx, "popest", "population", 2024)
	require.NoError(t, err)
	require.Len(t, slice, 2)
	assert.Equal(t, 2_600_000.0, *slice["48113"])

	t.Run("missing value stays nil", func(t *testing.T) {
		m, err := w.Slice(ctx, "popest", "domestic_migration", 2024)
		require.NoError(t, err)
		require.Contains(t, m, "06075")
		assert.Nil(t, m["06075"])
	})

	t.Run("empty slice is ErrNoData", func(t *testing.T) {
		_, err := w.Slice(ctx, "popest", "population", 1999)
		assert.ErrorIs(t, err, ErrNoData)
	})
}

func TestInsert_DuplicateKeyIsCallerError(t *testing.T) {
	w := testWarehouse(t)
	ctx := context.Background()

	rows := []domain.Observation{
		obs("48113", 2024, "population", domain.Float64(1)),
		obs("48113", 2024, "population", domain.Float64(2)),
	}
	err := w.Insert(ctx, "popest", rows)
	require.Error(t, err, "duplicate keys must not be silently merged")
}

func TestReplace(t *testing.T) {
	w := testWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Insert(ctx, "popest", []domain.Observation{
		obs("48113", 2024, "population", domain.Float64(1)),
	}))
	require.NoError(t, w.Replace(ctx, "popest", []domain.Observation{
		obs("48113", 2024, "population", domain.Float64(2)),
	}))

	slice, err := w.Slice(ctx, "popest", "population", 2024)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *slice["48113"])
}

func TestPercentChange(t *testing.T) {
	w := testWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Insert(ctx, "zori", []domain.Observation{
		obs("10001", 2019, "rent_index", domain.Float64(2000)),
		obs("10001", 2025, "rent_index", domain.Float64(2500)),
		obs("10002", 2019, "rent_index", domain.Float64(0)), // zero base
		obs("10002", 2025, "rent_index", domain.Float64(1800)),
		obs("10003", 2025, "rent_index", domain.Float64(3000)), // no base year row
	}))

	change, err := w.PercentChange(ctx, "zori", "rent_index", 2019, 2025)
	require.NoError(t, err)

	require.Contains(t, change, "10001")
	assert.InDelta(t, 25.0, *change["10001"], 1e-9)

	t.Run("zero base is undefined", func(t *testing.T) {
		require.Contains(t, change, "10002")
		assert.Nil(t, change["10002"])
	})

	t.Run("missing base year drops the geography", func(t *testing.T) {
		assert.NotContains(t, change, "10003")
	})
}

func TestPerCapita(t *testing.T) {
	w := testWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Insert(ctx, "acs", []domain.Observation{
		obs("12420", 2023, "phd_holders", domain.Float64(4200)),
		obs("12420", 2023, "population", domain.Float64(2_100_000)),
		obs("26420", 2023, "phd_holders", domain.Float64(900)),
		obs("26420", 2023, "population", domain.Float64(0)), // zero pop
	}))

	rates, err := w.PerCapita(ctx, "acs", "phd_holders", "population", 2023, 10_000)
	require.NoError(t, err)

	require.Contains(t, rates, "12420")
	assert.InDelta(t, 20.0, *rates["12420"], 1e-9)
	require.Contains(t, rates, "26420")
	assert.Nil(t, rates["26420"])
}

func TestPanel(t *testing.T) {
	w := testWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Insert(ctx, "popest", []domain.Observation{
		obs("06", 2023, "population", domain.Float64(38_900_000)),
		obs("06", 2024, "population", domain.Float64(39_000_000)),
		obs("06", 2024, "net_migration", domain.Float64(-100_000)),
		obs("48", 2024, "population", domain.Float64(31_000_000)),
	}))

	panel, err := w.Panel(ctx, "popest", []string{"population", "net_migration"}, 2024, 2024)
	require.NoError(t, err)
	require.Len(t, panel, 2)

	byGeo := map[string]PanelRow{}
	for _, row := range panel {
		byGeo[row.GeoID] = row
	}

	ca := byGeo["06"]
	assert.Equal(t, 2024, ca.Year)
	assert.Equal(t, 39_000_000.0, *ca.Values["population"])
	assert.Equal(t, -100_000.0, *ca.Values["net_migration"])

	tx := byGeo["48"]
	_, hasMigration := tx.Values["net_migration"]
	assert.False(t, hasMigration, "measures absent upstream stay absent")

	t.Run("no measures is an error", func(t *testing.T) {
		_, err := w.Panel(ctx, "popest", nil, 2024, 2024)
		require.Error(t, err)
	})

	t.Run("empty range is ErrNoData", func(t *testing.T) {
		_, err := w.Panel(ctx, "popest", []string{"population"}, 1990, 1991)
		assert.ErrorIs(t, err, ErrNoData)
	})
}
