// Package tags canonicalizes free-text topic tags so that tags coming from
// different platforms ("Dynamic Programming", "dynamic-programming",
// "DYNAMIC  programming") compare equal.
package tags

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases tag and replaces every whitespace run with a single
// hyphen. Leading and trailing whitespace is dropped. Compatibility forms
// (full-width letters, non-breaking spaces) are folded first, so
// Normalize(Normalize(t)) == Normalize(t).
func Normalize(tag string) string {
	s := norm.NFKC.String(tag)
	// A Caser carries state, so each call gets its own.
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), "-")
}

// NormalizeAll normalizes every tag, dropping empties and duplicates while
// keeping first-seen order. The result is never nil.
func NormalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Equal reports whether two tag lists hold the same tags in the same order.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
