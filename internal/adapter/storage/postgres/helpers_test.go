package postgres

import (
	"github.com/shopspring/decimal"
)

// decimalArg matches a decimal argument by value, not representation.
type decimalArg struct {
	want decimal.Decimal
}

func decimalEq(s string) decimalArg {
	return decimalArg{want: decimal.RequireFromString(s)}
}

func (a decimalArg) Match(v interface{}) bool {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.Equal(a.want)
	case *decimal.Decimal:
		return d != nil && d.Equal(a.want)
	case string:
		parsed, err := decimal.NewFromString(d)
		return err == nil && parsed.Equal(a.want)
	}
	return false
}

func strPtr(s string) *string {
	return &s
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
