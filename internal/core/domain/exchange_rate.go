package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate converts one unit of Source into Rate units of Target.
type ExchangeRate struct {
	Source    string          `json:"source_currency"`
	Target    string          `json:"target_currency"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NormalizeCurrency upper-cases and trims an ISO-4217 code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
