// Package strings holds small helpers for lists of caller-supplied strings.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops blanks and repeats, keeping the
// first occurrence order.
//
//	DedupeAndTrim([]string{" QmA ", "QmB", "QmA", ""}) // ["QmA", "QmB"]
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitAndTrim splits s on sep and applies DedupeAndTrim to the parts.
// An empty s yields an empty, non-nil slice.
func SplitAndTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return DedupeAndTrim(strings.Split(s, sep))
}
