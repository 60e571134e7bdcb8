// Package address canonicalizes free-text addresses into stable cache keys.
package address

import (
	"regexp"
	"strings"
)

// DefaultCityHint is appended to addresses that carry no city of their own.
const DefaultCityHint = "Waterloo, ON, Canada"

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Normalize canonicalizes a raw address for use as a cache key. It is a
// pure, total function: unresolvable input still yields a best-effort
// canonical string. Two calls with the same inputs always agree, which is
// what keeps cache keys stable across runs.
func Normalize(raw, cityHint string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, ",;.")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = multiSpace.ReplaceAllString(s, " ")

	hint := strings.TrimSpace(cityHint)
	if hint == "" {
		hint = DefaultCityHint
	}
	hint = strings.ToLower(multiSpace.ReplaceAllString(hint, " "))

	if s == "" {
		return hint
	}

	// Skip the suffix when the address already names the hint's city.
	city := hint
	if idx := strings.IndexByte(hint, ','); idx > 0 {
		city = strings.TrimSpace(hint[:idx])
	}
	if strings.Contains(s, city) {
		return s
	}
	return s + ", " + hint
}
