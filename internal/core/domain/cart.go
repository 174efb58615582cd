package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds a user's pending purchases. At most one cart exists per user;
// it is created lazily and never deleted, only emptied by checkout.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a single line in a cart. UnitPrice is the price captured when
// the item was added; checkout re-prices from the live product price.
type CartItem struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
