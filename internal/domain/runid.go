package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// RunID produces a deterministic ID from a chart name and its parameters.
// Deterministic IDs make re-runs idempotent: the same chart with the same
// parameters overwrites its previous artifact instead of piling up copies.
func RunID(chart string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(chart)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, params[k])
	}

	hash := sha256.Sum256([]byte(b.String()))
	short := hex.EncodeToString(hash[:8])
	if chart == "" {
		return short
	}
	return chart + "-" + short
}
