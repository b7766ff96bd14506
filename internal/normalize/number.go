package normalize

import (
	"strconv"
	"strings"
)

// ParseNumber extracts a plain decimal from text such as "$1,250.00" or
// "25 pcs". Ranges and text without digits yield false.
func ParseNumber(input string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, input)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
