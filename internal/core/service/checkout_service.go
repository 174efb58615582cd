package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/core/domain"
	"github.com/oakmart/storefront/internal/port"
)

// CheckoutRequest is the inbound contract of a checkout attempt. The cart
// itself is looked up server-side by UserID.
type CheckoutRequest struct {
	RequestID         string
	UserID            string
	ShippingAddressID string
	PaymentMethod     string
	CouponID          string
	Notes             string
}

// CheckoutService converts carts into orders. One call to Checkout is one
// storage transaction: either the order, its lines, the stock decrements,
// the ledger entries, and the cart clearing all commit, or none of them do.
type CheckoutService struct {
	store     port.Store
	cache     port.CacheRepository
	coupons   port.CouponService
	addresses port.AddressService
	notifier  port.Notifier
	logger    *zap.Logger
	pricing   PricingPolicy
	now       func() time.Time
	newNumber func() string
}

func NewCheckoutService(
	store port.Store,
	cache port.CacheRepository,
	coupons port.CouponService,
	addresses port.AddressService,
	notifier port.Notifier,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		store:     store,
		cache:     cache,
		coupons:   coupons,
		addresses: addresses,
		notifier:  notifier,
		logger:    logger,
		pricing:   DefaultPricingPolicy(),
		now:       time.Now,
		newNumber: func() string { return "ORD-" + ulid.Make().String() },
	}
}

// Checkout runs one checkout attempt for the user. On success it returns the
// committed order and its lines; on failure the store is provably unchanged.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, []domain.OrderItem, error) {
	if req.UserID == "" || req.ShippingAddressID == "" || req.PaymentMethod == "" {
		return nil, nil, fmt.Errorf("checkout: missing required fields")
	}

	owned, err := s.addresses.AddressBelongsTo(ctx, req.ShippingAddressID, req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("address check failed: %w", err)
	}
	if !owned {
		return nil, nil, ErrInvalidAddress
	}

	idempotencyKey := fmt.Sprintf("checkout:%s:%s", req.UserID, req.RequestID)
	if req.RequestID != "" {
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, nil, ErrDuplicateRequest
		}
	}

	var (
		order *domain.Order
		items []domain.OrderItem
	)
	err = s.store.RunInTransaction(ctx, func(tx port.Tx) error {
		cart, err := tx.CartForUser(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if cart == nil {
			return ErrEmptyCart
		}

		lines, err := tx.CartItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("load cart items: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		products, err := s.validateStock(ctx, tx, lines)
		if err != nil {
			return err
		}

		discount, err := s.couponDiscount(ctx, req.CouponID, lines, products)
		if err != nil {
			return err
		}
		quote := s.pricing.Price(lines, products, discount)

		if err := s.reserveStock(ctx, tx, req.UserID, lines, products); err != nil {
			return err
		}

		order, items = s.assemble(req, quote, lines, products)
		if err := tx.InsertOrder(ctx, *order, items); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		if req.RequestID != "" {
			if relErr := s.cache.ReleaseIdempotency(ctx, idempotencyKey); relErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("key", idempotencyKey), zap.Error(relErr))
			}
		}
		return nil, nil, err
	}

	s.logger.Info("checkout committed",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.Int("lines", len(items)),
		zap.String("total", order.Total.String()))

	// Past the point of no return: the order is durable. Notification
	// failures are logged and discarded, never surfaced to the caller.
	if s.notifier != nil {
		if err := s.notifier.OrderConfirmed(ctx, *order, items); err != nil {
			s.logger.Warn("order confirmation notification failed",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
	}

	return order, items, nil
}

// validateStock is the advisory pass: it confirms every referenced product
// exists with sufficient stock so the user gets fast, specific feedback. It
// takes no locks; the authoritative check happens again in reserveStock.
func (s *CheckoutService) validateStock(ctx context.Context, tx port.Tx, lines []domain.CartItem) (map[string]domain.Product, error) {
	products := make(map[string]domain.Product, len(lines))
	for _, line := range lines {
		p, err := tx.Product(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if p == nil {
			return nil, &ProductUnavailableError{ProductID: line.ProductID, Requested: line.Quantity}
		}
		if p.Stock < line.Quantity {
			return nil, &ProductUnavailableError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: p.Stock,
			}
		}
		products[p.ID] = *p
	}
	return products, nil
}

// reserveStock performs the authoritative decrement: a conditional update
// that subtracts only while stock remains sufficient. A zero-row update
// means a concurrent checkout won the race since validation; the whole
// transaction aborts and nothing partial survives. Every decrement appends
// one "sale" ledger entry.
func (s *CheckoutService) reserveStock(ctx context.Context, tx port.Tx, userID string, lines []domain.CartItem, products map[string]domain.Product) error {
	for _, line := range lines {
		ok, newStock, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", line.ProductID, err)
		}
		if !ok {
			p := products[line.ProductID]
			s.logger.Info("stock race lost",
				zap.String("product_id", p.ID),
				zap.String("user_id", userID),
				zap.Int("requested", line.Quantity))
			return &ProductUnavailableError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: newStock,
				RaceLost:  true,
			}
		}

		entry := domain.StockLedgerEntry{
			ID:        uuid.NewString(),
			ProductID: line.ProductID,
			OldStock:  newStock + line.Quantity,
			NewStock:  newStock,
			Change:    -line.Quantity,
			Reason:    domain.StockReasonSale,
			ActorID:   userID,
			CreatedAt: s.now(),
		}
		if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
			return fmt.Errorf("append ledger entry for %s: %w", line.ProductID, err)
		}
	}
	return nil
}

// couponDiscount resolves the optional coupon. A missing or inapplicable
// coupon means no discount, never a failed checkout; collaborator outages
// are downgraded the same way.
func (s *CheckoutService) couponDiscount(ctx context.Context, couponID string, lines []domain.CartItem, products map[string]domain.Product) (decimal.Decimal, error) {
	if couponID == "" || s.coupons == nil {
		return decimal.Zero, nil
	}
	subTotal := decimal.Zero
	for _, line := range lines {
		subTotal = subTotal.Add(products[line.ProductID].Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	discount, err := s.coupons.Discount(ctx, couponID, subTotal)
	if err != nil {
		s.logger.Warn("coupon evaluation failed, continuing without discount",
			zap.String("coupon_id", couponID), zap.Error(err))
		return decimal.Zero, nil
	}
	return discount, nil
}

// assemble materializes the order aggregate from already-validated,
// already-priced data. Product name, SKU, and unit price are snapshotted
// into each line so later catalog edits cannot rewrite purchase history.
func (s *CheckoutService) assemble(req CheckoutRequest, quote Quote, lines []domain.CartItem, products map[string]domain.Product) (*domain.Order, []domain.OrderItem) {
	now := s.now()
	order := &domain.Order{
		ID:                uuid.NewString(),
		OrderNumber:       s.newNumber(),
		UserID:            req.UserID,
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     req.PaymentMethod,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		SubTotal:          quote.SubTotal,
		ShippingCost:      quote.ShippingCost,
		Tax:               quote.Tax,
		Discount:          quote.Discount,
		Total:             quote.Total,
		CouponID:          req.CouponID,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := products[line.ProductID]
		qty := decimal.NewFromInt(int64(line.Quantity))
		items = append(items, domain.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   p.Price,
			TotalPrice:  p.Price.Mul(qty),
		})
	}
	return order, items
}

// Order returns a committed order by number, scoped to its owner.
func (s *CheckoutService) Order(ctx context.Context, userID, orderNumber string) (*domain.Order, []domain.OrderItem, error) {
	order, items, err := s.store.OrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, nil, ErrOrderNotFound
	}
	return order, items, nil
}

// CancelOrder cancels a pending or confirmed order, restoring each line's
// stock and appending "return" ledger entries in the same transaction as
// the status change.
func (s *CheckoutService) CancelOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	var cancelled *domain.Order
	err := s.store.RunInTransaction(ctx, func(tx port.Tx) error {
		order, err := tx.OrderByNumber(ctx, orderNumber)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order == nil || order.UserID != userID {
			return ErrOrderNotFound
		}

		ok, err := tx.TransitionOrderStatus(ctx, order.ID, domain.CancellableFrom, domain.OrderStatusCancelled)
		if err != nil {
			return fmt.Errorf("transition order status: %w", err)
		}
		if !ok {
			return ErrCancelNotAllowed
		}

		items, err := tx.OrderItems(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}
		for _, item := range items {
			newStock, err := tx.IncrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
			}
			entry := domain.StockLedgerEntry{
				ID:        uuid.NewString(),
				ProductID: item.ProductID,
				OldStock:  newStock - item.Quantity,
				NewStock:  newStock,
				Change:    item.Quantity,
				Reason:    domain.StockReasonReturn,
				ActorID:   userID,
				CreatedAt: s.now(),
			}
			if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
				return fmt.Errorf("append ledger entry for %s: %w", item.ProductID, err)
			}
		}

		order.Status = domain.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.String("order_number", cancelled.OrderNumber),
		zap.String("user_id", userID))
	return cancelled, nil
}
