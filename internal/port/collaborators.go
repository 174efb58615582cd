package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/core/domain"
)

// CouponService evaluates a coupon against a subtotal. An unknown, expired,
// or inapplicable coupon yields a zero discount, not an error; errors are
// reserved for infrastructure failures.
type CouponService interface {
	Discount(ctx context.Context, couponID string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// AddressService confirms a shipping address belongs to a user. Checked
// before the checkout transaction opens.
type AddressService interface {
	AddressBelongsTo(ctx context.Context, addressID, userID string) (bool, error)
}

// Notifier delivers best-effort post-commit confirmations. Failures must
// never affect the checkout outcome.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order domain.Order, items []domain.OrderItem) error
}
