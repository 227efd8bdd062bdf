package db

import "github.com/shopspring/decimal"

// Numeric columns are selected as ::text and written as strings; pgx has no
// native shopspring codec.

// Dec parses a numeric::text value. Postgres always renders valid numerics,
// so a parse failure yields zero.
func Dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecPtr parses a nullable numeric::text value.
func DecPtr(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d := Dec(*s)
	return &d
}

// Str renders a decimal for a numeric parameter.
func Str(d decimal.Decimal) string {
	return d.String()
}

// StrPtr renders a nullable decimal for a numeric parameter.
func StrPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
