package domain

import (
	"strings"
)

// ExcludedStateFIPS lists Alaska, Hawaii, and the island territories, which
// continental-US maps leave out.
var ExcludedStateFIPS = []string{"02", "15", "60", "66", "69", "72", "78"}

// IsConusState reports whether a state FIPS code belongs on a continental map.
func IsConusState(stateFIPS string) bool {
	stateFIPS = NormalizeStateFIPS(stateFIPS)
	for _, f := range ExcludedStateFIPS {
		if f == stateFIPS {
			return false
		}
	}
	return stateFIPS != ""
}

// NormalizeStateFIPS restores the leading zero an integer-typed column drops:
// "6" -> "06".
func NormalizeStateFIPS(s string) string {
	return padDigits(s, 2)
}

// NormalizeCountyFIPS builds the canonical 5-digit county GEOID from separate
// state and county columns.
func NormalizeCountyFIPS(state, county string) string {
	st := padDigits(state, 2)
	co := padDigits(county, 3)
	if st == "" || co == "" {
		return ""
	}
	return st + co
}

// NormalizeZCTA pads ZIP code tabulation areas to five digits.
func NormalizeZCTA(s string) string {
	return padDigits(s, 5)
}

// NormalizeCBSA pads metro/micro area codes to five digits.
func NormalizeCBSA(s string) string {
	return padDigits(s, 5)
}

// NormalizePUMA builds the 7-digit state+PUMA key used to join IPUMS
// aggregates onto PUMA geometry.
func NormalizePUMA(state, puma string) string {
	st := padDigits(state, 2)
	p := padDigits(puma, 5)
	if st == "" || p == "" {
		return ""
	}
	return st + p
}

// NormalizeGEOID pads a combined GEOID column to the width its geography
// uses: 5 for counties, metros, and ZCTAs, 7 for PUMAs.
func NormalizeGEOID(s string, width int) string {
	return padDigits(s, width)
}

// padDigits trims, rejects non-digits, and left-pads to width. Inputs longer
// than width are returned as-is so a malformed key fails the join instead of
// being silently truncated.
func padDigits(s string, width int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	for len(s) < width {
		s = "0" + s
	}
	return s
}
