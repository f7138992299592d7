// Package domain models the tabular observations and derived metrics behind
// the newsletter's charts and maps.
//
// # Data Sources
//
// Observations come from three upstreams:
//
//   - The Census Bureau data API (https://api.census.gov/data), which returns
//     JSON arrays-of-arrays: the first row is the header, subsequent rows are
//     string-encoded values. ACS 1-year and 5-year tables are pulled this way.
//   - Census bulk vintage CSVs on www2.census.gov (population estimates and
//     components of change), which arrive wide: one row per geography with
//     year-suffixed columns such as POPESTIMATE2024 or DOMESTICMIG2023.
//   - The IPUMS extract API, which builds microdata extracts asynchronously
//     and serves them as gzipped CSVs.
//
// # Geography Keys
//
// Every observation is keyed by a geography ID whose format depends on the
// geography level:
//
//	state   2-digit FIPS, zero padded      "06"
//	county  5-digit FIPS (state+county)    "48113"
//	zcta    5-digit ZIP code tabulation    "10001"
//	cbsa    5-digit metro/micro area code  "12420"
//	puma    7-digit state FIPS + PUMA      "4805905"
//
// Upstream files encode these inconsistently: integers with lost leading
// zeros, or separate state and county columns. The Normalize helpers put keys
// in canonical form so metric tables and geometry tables join on identical
// strings. Alaska, Hawaii, and the island territories are excluded from
// continental-US maps via [ExcludedStateFIPS].
//
// # Missing Values
//
// A missing or suppressed metric is a nil *float64, never zero. Percent
// change from a zero base is undefined and stays nil; renderers map nil to
// the designated "no data" bin rather than the bottom of the scale.
//
// # Run IDs
//
// Pipeline runs carry a deterministic ID derived from the chart name and its
// parameters (see [RunID]). Re-running the same chart against unchanged
// upstream data produces the same ID and byte-identical consolidated tables.
package domain
