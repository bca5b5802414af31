package model

import (
	"strconv"
	"strings"
)

// ParseNumeric coerces a stored field value to a number.
//
// Every character other than digits and '.' is stripped first, so scraped
// values such as "$23,500" parse as 23500. A leading '-' is kept for negative
// measurements. Returns false when nothing numeric remains.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	var b strings.Builder
	negative := strings.HasPrefix(s, "-")
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || strings.Trim(digits, ".") == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// FormatNumber renders a measurement for storage without losing precision.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
