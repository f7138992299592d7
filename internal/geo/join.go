package geo

import (
	"github.com/hearthline/chartpress/internal/domain"
)

// JoinType selects join semantics against the geometry table.
type JoinType int

const (
	// InnerJoin keeps only geographies present in both tables.
	InnerJoin JoinType = iota
	// LeftJoin keeps every geometry; geographies without a metric get a nil
	// value and render in the no-data bin.
	LeftJoin
)

// JoinedFeature is one geometry with its metric attached.
type JoinedFeature struct {
	domain.GeometryRecord
	Value *float64
}

// Join merges a metrics map onto geometry records. Metric keys without a
// matching geometry are dropped silently in both modes; the geometry table
// defines what can be drawn. Output preserves geometry order, so rendering
// is deterministic.
func Join(metrics map[string]*float64, geoms []domain.GeometryRecord, how JoinType) []JoinedFeature {
	out := make([]JoinedFeature, 0, len(geoms))
	for _, g := range geoms {
		v, ok := metrics[g.GeoID]
		if !ok {
			if how == InnerJoin {
				continue
			}
			v = nil
		}
		// An inner join also drops keys whose metric is present but null;
		// "present with no data" only survives a left join.
		if how == InnerJoin && v == nil {
			continue
		}
		out = append(out, JoinedFeature{GeometryRecord: g, Value: v})
	}
	return out
}

// Values extracts the non-nil metric values from joined features, the input
// for quantile thresholds.
func Values(features []JoinedFeature) []float64 {
	var vals []float64
	for _, f := range features {
		if f.Value != nil {
			vals = append(vals, *f.Value)
		}
	}
	return vals
}
