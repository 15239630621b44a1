package search

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity is the longest-matching-blocks ratio 2*M/T between a and b,
// compared rune by rune. Identical strings score 1, disjoint ones 0.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
