// Package warehouse stores long-format observations in an embedded SQLite
// database and answers the relational questions charts ask: period-over-period
// change, per-capita rates, and geography-year panels. It fills the role the
// analysis notebooks gave an embedded analytic query engine, with plain SQL.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hearthline/chartpress/internal/domain"
	"github.com/hearthline/chartpress/internal/observability"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNoData marks a query whose result set is empty; charts treat it as a
// configuration mistake rather than an empty map.
var ErrNoData = errors.New("warehouse: no data for query")

// Warehouse is a handle on the observation database. Not safe for
// concurrent writers; chart runs write from a single goroutine.
type Warehouse struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

// SetMetrics attaches query instrumentation. Queries run untimed when unset.
func (w *Warehouse) SetMetrics(m *observability.Metrics) {
	w.metrics = m
}

func (w *Warehouse) observe(query string, start time.Time) {
	if w.metrics != nil {
		w.metrics.QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}

// Open creates or opens the database at path. Use ":memory:" in tests.
func Open(path string, logger *slog.Logger) (*Warehouse, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create warehouse dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS observations (
		dataset TEXT NOT NULL,
		geo_id  TEXT NOT NULL,
		year    INTEGER NOT NULL,
		measure TEXT NOT NULL,
		value   REAL,
		PRIMARY KEY (dataset, geo_id, year, measure)
	)`); err != nil {
		return nil, fmt.Errorf("create observations table: %w", err)
	}
	return &Warehouse{db: db, logger: logger}, nil
}

func (w *Warehouse) Close() error {
	return w.db.Close()
}

// Insert loads observations into the named dataset inside one transaction.
// Duplicate (geo, year, measure) keys are a caller error and abort the load;
// re-ingesting a dataset goes through Replace.
func (w *Warehouse) Insert(ctx context.Context, dataset string, obs []domain.Observation) (retErr error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (dataset, geo_id, year, measure, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range obs {
		var value any
		if o.Value != nil {
			value = *o.Value
		}
		if _, err := stmt.ExecContext(ctx, dataset, o.GeoID, o.Year, o.Measure, value); err != nil {
			return fmt.Errorf("insert %s/%s/%d/%s: %w", dataset, o.GeoID, o.Year, o.Measure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	w.logger.Info("observations loaded", "dataset", dataset, "rows", len(obs))
	return nil
}

// Replace drops a dataset and re-ingests it, the idempotent path for
// consolidation re-runs.
func (w *Warehouse) Replace(ctx context.Context, dataset string, obs []domain.Observation) error {
	if _, err := w.db.ExecContext(ctx, `DELETE FROM observations WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("clear dataset %s: %w", dataset, err)
	}
	return w.Insert(ctx, dataset, obs)
}

// Slice returns measure values for every geography in one year. Missing
// values come back as nil entries.
func (w *Warehouse) Slice(ctx context.Context, dataset, measure string, year int) (map[string]*float64, error) {
	defer w.observe("slice", time.Now())
	rows, err := w.db.QueryContext(ctx,
		`SELECT geo_id, value FROM observations
		 WHERE dataset = ? AND measure = ? AND year = ?`,
		dataset, measure, year)
	if err != nil {
		return nil, fmt.Errorf("slice query: %w", err)
	}
	defer rows.Close()

	return scanGeoValues(rows)
}

// PercentChange computes (new-old)/old*100 per geography between two years
// in SQL. A zero or missing base yields NULL, never zero.
func (w *Warehouse) PercentChange(ctx context.Context, dataset, measure string, fromYear, toYear int) (map[string]*float64, error) {
	defer w.observe("percent_change", time.Now())
	rows, err := w.db.QueryContext(ctx,
		`SELECT n.geo_id,
		        CASE WHEN o.value IS NULL OR o.value = 0 OR n.value IS NULL THEN NULL
		             ELSE (n.value - o.value) / o.value * 100 END
		 FROM observations n
		 JOIN observations o
		   ON o.dataset = n.dataset AND o.geo_id = n.geo_id AND o.measure = n.measure
		 WHERE n.dataset = ? AND n.measure = ? AND n.year = ? AND o.year = ?`,
		dataset, measure, toYear, fromYear)
	if err != nil {
		return nil, fmt.Errorf("percent change query: %w", err)
	}
	defer rows.Close()

	return scanGeoValues(rows)
}

// PerCapita joins a count measure against a population measure for one year
// and scales to a rate per `per` residents.
func (w *Warehouse) PerCapita(ctx context.Context, dataset, measure, popMeasure string, year int, per float64) (map[string]*float64, error) {
	defer w.observe("per_capita", time.Now())
	rows, err := w.db.QueryContext(ctx,
		`SELECT c.geo_id,
		        CASE WHEN p.value IS NULL OR p.value = 0 OR c.value IS NULL THEN NULL
		             ELSE c.value / p.value * ? END
		 FROM observations c
		 JOIN observations p
		   ON p.dataset = c.dataset AND p.geo_id = c.geo_id AND p.year = c.year AND p.measure = ?
		 WHERE c.dataset = ? AND c.measure = ? AND c.year = ?`,
		per, popMeasure, dataset, measure, year)
	if err != nil {
		return nil, fmt.Errorf("per capita query: %w", err)
	}
	defer rows.Close()

	return scanGeoValues(rows)
}

// PanelRow is one (geography, year) row of a measure panel.
type PanelRow struct {
	GeoID  string
	Year   int
	Values map[string]*float64
}

// Panel pivots measures into a geography-year panel, the shape the scatter
// and small-multiple charts consume.
func (w *Warehouse) Panel(ctx context.Context, dataset string, measures []string, fromYear, toYear int) ([]PanelRow, error) {
	defer w.observe("panel", time.Now())
	if len(measures) == 0 {
		return nil, fmt.Errorf("panel: no measures given")
	}

	query := `SELECT geo_id, year, measure, value FROM observations
	          WHERE dataset = ? AND year BETWEEN ? AND ? AND measure IN (?` +
		repeatPlaceholder(len(measures)-1) + `)
	          ORDER BY geo_id, year, measure`
	args := []any{dataset, fromYear, toYear}
	for _, m := range measures {
		args = append(args, m)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("panel query: %w", err)
	}
	defer rows.Close()

	var panel []PanelRow
	index := map[string]int{} // geo|year -> panel position
	for rows.Next() {
		var (
			geo     string
			year    int
			measure string
			value   sql.NullFloat64
		)
		if err := rows.Scan(&geo, &year, &measure, &value); err != nil {
			return nil, fmt.Errorf("scan panel row: %w", err)
		}

		key := fmt.Sprintf("%s|%d", geo, year)
		pos, ok := index[key]
		if !ok {
			pos = len(panel)
			index[key] = pos
			panel = append(panel, PanelRow{GeoID: geo, Year: year, Values: map[string]*float64{}})
		}
		if value.Valid {
			v := value.Float64
			panel[pos].Values[measure] = &v
		} else {
			panel[pos].Values[measure] = nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(panel) == 0 {
		return nil, ErrNoData
	}
	return panel, nil
}

func scanGeoValues(rows *sql.Rows) (map[string]*float64, error) {
	out := map[string]*float64{}
	for rows.Next() {
		var (
			geo   string
			value sql.NullFloat64
		)
		if err := rows.Scan(&geo, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if value.Valid {
			v := value.Float64
			out[geo] = &v
		} else {
			out[geo] = nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ",?"
	}
	return s
}
