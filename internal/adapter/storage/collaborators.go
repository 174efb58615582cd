package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MySQLCouponService resolves coupons from the coupons table. Anything that
// makes a coupon inapplicable (unknown id, expired, subtotal below minimum)
// yields a zero discount rather than an error.
type MySQLCouponService struct {
	db *sql.DB
}

func NewMySQLCouponService(db *sql.DB) *MySQLCouponService {
	return &MySQLCouponService{db: db}
}

func (c *MySQLCouponService) Discount(ctx context.Context, couponID string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var (
		amount      decimal.Decimal
		minSubtotal decimal.Decimal
		expiresAt   sql.NullTime
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT discount_amount, min_subtotal, expires_at
		FROM coupons WHERE id = ?`, couponID,
	).Scan(&amount, &minSubtotal, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query coupon: %w", err)
	}

	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return decimal.Zero, nil
	}
	if subtotal.LessThan(minSubtotal) {
		return decimal.Zero, nil
	}
	return amount, nil
}

// MySQLAddressService checks shipping-address ownership before a checkout
// transaction opens.
type MySQLAddressService struct {
	db *sql.DB
}

func NewMySQLAddressService(db *sql.DB) *MySQLAddressService {
	return &MySQLAddressService{db: db}
}

func (a *MySQLAddressService) AddressBelongsTo(ctx context.Context, addressID, userID string) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM addresses WHERE id = ? AND user_id = ?`,
		addressID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query address: %w", err)
	}
	return count > 0, nil
}
