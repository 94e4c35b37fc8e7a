package domain

import "github.com/shopspring/decimal"

// CoalesceStr returns the first non-empty string from vals.
func CoalesceStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// DecimalOrZero returns *d, or zero when d is nil.
func DecimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// StrValue returns *s, or "" when s is nil.
func StrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
