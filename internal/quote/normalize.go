package quote

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Fold normalizes a value for case-insensitive matching:
// surrounding whitespace is trimmed and the result lowercased.
// Internal whitespace is significant.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SameFold reports whether a and b are equal under Fold.
func SameFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Key returns the lane identity used by caches and call collapsing.
func (l Lane) Key() string {
	return strings.Join([]string{
		Fold(l.FromCountry), Fold(l.FromCity), Fold(l.ToCountry), Fold(l.ToCity),
	}, "\x1f")
}

// Matches reports whether two lanes are equal ignoring case.
func (l Lane) Matches(other Lane) bool {
	return SameFold(l.FromCountry, other.FromCountry) &&
		SameFold(l.FromCity, other.FromCity) &&
		SameFold(l.ToCountry, other.ToCountry) &&
		SameFold(l.ToCity, other.ToCity)
}

// Trimmed returns the lane with surrounding whitespace removed from every field.
func (l Lane) Trimmed() Lane {
	return Lane{
		FromCountry: strings.TrimSpace(l.FromCountry),
		FromCity:    strings.TrimSpace(l.FromCity),
		ToCountry:   strings.TrimSpace(l.ToCountry),
		ToCity:      strings.TrimSpace(l.ToCity),
	}
}

// ParseAmount parses a stored numeric cell. Blank, unparseable and negative
// values are absent, never zero.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
