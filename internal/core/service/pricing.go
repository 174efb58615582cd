package service

import (
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/core/domain"
)

// PricingPolicy holds the storefront's pricing constants. Shipping is a flat
// rate, not computed from weight or distance.
type PricingPolicy struct {
	TaxRate      decimal.Decimal
	FlatShipping decimal.Decimal
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:      decimal.NewFromFloat(0.18),
		FlatShipping: decimal.NewFromFloat(29.99),
	}
}

// Quote is a priced breakdown of a cart.
//
// Invariant: Total = SubTotal + ShippingCost + Tax - Discount.
type Quote struct {
	SubTotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// Price computes the quote for validated cart lines. Each line is priced
// from the live product price, not the price captured when the item was
// added: prices may have changed since, and checkout re-prices on purpose.
// The discount is clamped to the subtotal so a generous coupon can never
// drive the total negative.
func (p PricingPolicy) Price(lines []domain.CartItem, products map[string]domain.Product, discount decimal.Decimal) Quote {
	subTotal := decimal.Zero
	for _, line := range lines {
		price := products[line.ProductID].Price
		subTotal = subTotal.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	tax := subTotal.Mul(p.TaxRate).Round(2)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subTotal) {
		discount = subTotal
	}

	return Quote{
		SubTotal:     subTotal,
		ShippingCost: p.FlatShipping,
		Tax:          tax,
		Discount:     discount,
		Total:        subTotal.Add(p.FlatShipping).Add(tax).Sub(discount),
	}
}
