package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the inventory-relevant slice of the catalog. Checkout mutates
// only Stock; everything else is read-only here.
type Product struct {
	ID        string
	Name      string
	SKU       string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
