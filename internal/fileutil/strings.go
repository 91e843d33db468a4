package fileutil

import (
	"sort"
	"strings"
)

func DedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// SortFold sorts values case-insensitively, breaking ties on the raw value so the
// order is total.
func SortFold(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		a, b := strings.ToLower(values[i]), strings.ToLower(values[j])
		if a == b {
			return values[i] < values[j]
		}
		return a < b
	})
}
