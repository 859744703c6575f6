package markup

import (
	"math"
	"strconv"
	"strings"
)

// Sanitize drops every character that cannot belong to a decimal number typed
// with either a comma or a point as separator.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseNumber parses a user-entered number, accepting a decimal comma.
func ParseNumber(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrRequired
	}

	value = strings.Replace(value, ",", ".", 1)
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

// ParsePercent parses a percentage in the closed range [0, 100].
func ParsePercent(raw string) (float64, error) {
	n, err := ParseNumber(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrInvalidNumber
	}
	if n > 100 {
		return 0, ErrRange
	}
	return n, nil
}

// ParseCost parses a strictly positive monetary amount.
func ParseCost(raw string) (float64, error) {
	n, err := ParseNumber(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, ErrInvalidNumber
	}
	return n, nil
}
