package payments

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatMinor renders minor units as a major-unit decimal string. Whole amounts
// have no fractional part ("100"), others always carry two digits ("100.50").
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if minor%100 == 0 {
		return fmt.Sprintf("%s%d", sign, minor/100)
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseMinor is the inverse of FormatMinor and also accepts provider renderings
// such as "100.0" or "1,000.00".
func ParseMinor(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrValidation)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("%w: amount %q has sub-minor precision", ErrValidation, s)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: amount %q", ErrValidation, s)
		}
	}

	neg := strings.HasPrefix(whole, "-")
	w, err := strconv.ParseInt(strings.TrimPrefix(whole, "-"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %w", ErrValidation, s, err)
	}
	if w < 0 || w > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("%w: amount %q out of range", ErrValidation, s)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	if neg {
		return -(w*100 + f), nil
	}
	return w*100 + f, nil
}
