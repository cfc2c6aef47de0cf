package dedup

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// StringSimilarity returns a 0..1 similarity between two strings based
// on Levenshtein distance, case insensitive. Identical strings score
// 1.0, two empty strings score 0.0.
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b && a != "" {
		return 1.0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}
