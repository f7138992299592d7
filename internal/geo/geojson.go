// Package geo reads geometry tables, projects them, and joins them to
// metrics. Geometries arrive as GeoJSON FeatureCollections exported from the
// cartographic boundary shapefiles; every record is keyed by the same
// normalized geography IDs the observation tables use.
package geo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hearthline/chartpress/internal/domain"
)

// ReadFeatureCollection decodes GeoJSON features into geometry records.
// keyProperty names the property holding the geography ID (GEOID, CBSAFP,
// STATEFP...); normalize puts it in canonical form and may return "" to drop
// a feature. Only outer rings are kept; the maps never render holes.
func ReadFeatureCollection(r io.Reader, keyProperty string, normalize func(string) string) ([]domain.GeometryRecord, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("not a FeatureCollection: %q", fc.Type)
	}

	records := make([]domain.GeometryRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		key := propertyString(f.Properties, keyProperty)
		if normalize != nil {
			key = normalize(key)
		}
		if key == "" {
			continue
		}

		rec := domain.GeometryRecord{
			GeoID: key,
			Name:  propertyString(f.Properties, "NAME"),
		}

		switch f.Geometry.Type {
		case "Polygon":
			var coords [][][]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
				return nil, fmt.Errorf("feature %d: decode polygon: %w", i, err)
			}
			if len(coords) > 0 {
				rec.Rings = append(rec.Rings, toRing(coords[0]))
			}
		case "MultiPolygon":
			var coords [][][][]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
				return nil, fmt.Errorf("feature %d: decode multipolygon: %w", i, err)
			}
			for _, part := range coords {
				if len(part) > 0 {
					rec.Rings = append(rec.Rings, toRing(part[0]))
				}
			}
		case "Point":
			var coord []float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &coord); err != nil {
				return nil, fmt.Errorf("feature %d: decode point: %w", i, err)
			}
			if len(coord) >= 2 {
				rec.Point = &[2]float64{coord[0], coord[1]}
			}
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry type %q", i, f.Geometry.Type)
		}

		if err := rec.Validate(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toRing(coords [][]float64) [][2]float64 {
	ring := make([][2]float64, 0, len(coords))
	for _, c := range coords {
		if len(c) >= 2 {
			ring = append(ring, [2]float64{c[0], c[1]})
		}
	}
	return ring
}

func propertyString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Shapefile exports sometimes type FIPS codes as numbers.
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]any `json:"properties"`
	Geometry   struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}
