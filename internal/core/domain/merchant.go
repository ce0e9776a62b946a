package domain

import (
	"github.com/google/uuid"
)

// Placeholder metadata recorded when a merchant cannot be resolved.
const (
	UnknownMerchantName     = "Unknown merchant"
	UnknownMerchantCategory = "UNKNOWN"
	UnknownMerchantRegion   = "UNKNOWN"
)

// Merchant is the read-only view of a payee needed to snapshot a payment.
type Merchant struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	CountryCode string    `json:"country_code"`
}

// UnknownMerchant returns placeholder metadata for an unresolved merchant id.
func UnknownMerchant(id uuid.UUID) *Merchant {
	return &Merchant{
		ID:          id,
		Name:        UnknownMerchantName,
		Category:    UnknownMerchantCategory,
		CountryCode: UnknownMerchantRegion,
	}
}
