// Package search narrows a collection by a free-text query.
package search

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Filter returns the records whose haystack contains query, compared with
// Unicode case folding. A blank query returns an unchanged copy of in.
func Filter[T any](query string, in []T, haystack func(T) string) []T {
	match := Matcher(query)
	if match == nil {
		return slices.Clone(in)
	}
	out := make([]T, 0, len(in))
	for _, v := range in {
		if match(haystack(v)) {
			out = append(out, v)
		}
	}
	return out
}

// Matcher returns a predicate for query, or nil when the query is blank.
func Matcher(query string) func(string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	fold := cases.Fold()
	needle := fold.String(q)
	return func(s string) bool {
		return strings.Contains(fold.String(s), needle)
	}
}

// FullName joins name parts with single spaces, skipping blank ones, so a
// missing middle name or suffix never leaves a gap or placeholder behind.
func FullName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Haystack concatenates several searchable fields.
func Haystack(fields ...string) string {
	return FullName(fields...)
}
