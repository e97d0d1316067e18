package common

import (
	"math"
	"strings"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RoundHalfUp rounds x to the nearest integer, halves towards +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
