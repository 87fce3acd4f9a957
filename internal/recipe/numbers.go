package recipe

import (
	"regexp"
	"strconv"
)

var (
	numericRangePattern = regexp.MustCompile(`(\d+)\s*(?:-|–|to)\s*(\d+)`)
	embeddedNumber      = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// parseFlexibleInt extracts an integer from the loosely typed numeric values
// models return for servings and timing fields. A range string such as
// "8-10" collapses to the floor of the average of its bounds; this is a
// deliberate policy, not a rounding accident. Unparseable values yield nil,
// never an error.
func parseFlexibleInt(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case string:
		if m := numericRangePattern.FindStringSubmatch(n); m != nil {
			lo, err1 := strconv.Atoi(m[1])
			hi, err2 := strconv.Atoi(m[2])
			if err1 == nil && err2 == nil {
				i := (lo + hi) / 2
				return &i
			}
		}
		if m := embeddedNumber.FindString(n); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				i := int(f)
				return &i
			}
		}
	}
	return nil
}
