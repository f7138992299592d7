package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GeoLevel identifies the geography a key belongs to.
type GeoLevel string

const (
	LevelState  GeoLevel = "state"
	LevelCounty GeoLevel = "county"
	LevelZCTA   GeoLevel = "zcta"
	LevelCBSA   GeoLevel = "cbsa"
	LevelPUMA   GeoLevel = "puma"
)

// Observation is the atomic unit of every table: one metric value for one
// geography in one period. A nil Value marks a missing or suppressed cell.
type Observation struct {
	GeoID   string
	Year    int
	Measure string
	Value   *float64
}

// Table is the flat, string-typed result of a fetch before any typing or
// reshaping. Rows are positional against Columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column name). Missing columns and short
// rows both return "".
func (t Table) Cell(row int, name string) string {
	i := t.ColumnIndex(name)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Float64 returns a pointer so callers keep the missing/zero distinction.
func Float64(v float64) *float64 { return &v }

// ParseValue converts an upstream cell into an optional float. Empty strings
// and the Census suppression sentinels become nil rather than zero.
func ParseValue(s string) *float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", "null", "N/A", "(X)", "-666666666", "-999999999":
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// GeometryRecord is a polygon or point keyed by the same geography IDs as
// observations. Rings are projected x/y pairs; Point is used when the source
// is already a centroid.
type GeometryRecord struct {
	GeoID string
	Name  string
	Rings [][][2]float64 // outer rings of each polygon part
	Point *[2]float64
}

// Artifact describes a rendered output before it is written to the store.
type Artifact struct {
	Key         string
	ContentType string
	Body        []byte
	RenderedAt  time.Time
}

// NewArtifact stamps a rendered output with the package clock so tests can
// freeze the timestamp.
func NewArtifact(key, contentType string, body []byte) Artifact {
	return Artifact{
		Key:         key,
		ContentType: contentType,
		Body:        body,
		RenderedAt:  clock.Now(),
	}
}

// Validate rejects geometry that cannot be drawn: a polygon ring needs at
// least three points.
func (g GeometryRecord) Validate() error {
	if g.Point == nil && len(g.Rings) == 0 {
		return fmt.Errorf("geometry %s: no rings and no point", g.GeoID)
	}
	for i, ring := range g.Rings {
		if len(ring) < 3 {
			return fmt.Errorf("geometry %s: ring %d has %d points", g.GeoID, i, len(ring))
		}
	}
	return nil
}
