package port

import (
	"context"

	"github.com/oakmart/storefront/internal/core/domain"
)

// Store is the durable storage boundary. All checkout writes go through
// RunInTransaction so that a single attempt is one all-or-nothing unit.
type Store interface {
	// RunInTransaction begins a transaction, runs fn against it, and commits
	// if fn returns nil. Any error from fn rolls everything back and is
	// returned unchanged.
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	// OrderByNumber loads a committed order and its lines. Returns nil order
	// if no such order exists.
	OrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, []domain.OrderItem, error)

	// Product reads a product outside any transaction. Returns nil if the
	// product does not exist.
	Product(ctx context.Context, productID string) (*domain.Product, error)
}

// Tx is the set of operations available inside one storage transaction.
type Tx interface {
	// CartForUser returns the user's cart, or nil when the user has none.
	CartForUser(ctx context.Context, userID string) (*domain.Cart, error)

	// CartItems returns the lines of a cart.
	CartItems(ctx context.Context, cartID string) ([]domain.CartItem, error)

	// Product returns a product within the transaction's isolation level,
	// or nil when it does not exist.
	Product(ctx context.Context, productID string) (*domain.Product, error)

	// DecrementStock atomically subtracts qty from the product's stock only
	// if enough remains (conditional update, checked by affected rows).
	// Returns ok=false without error when stock was insufficient, otherwise
	// the stock level after the decrement.
	DecrementStock(ctx context.Context, productID string, qty int) (ok bool, newStock int, err error)

	// IncrementStock adds qty back to the product's stock and returns the
	// new level.
	IncrementStock(ctx context.Context, productID string, qty int) (newStock int, err error)

	// AppendLedgerEntry inserts one append-only stock audit record.
	AppendLedgerEntry(ctx context.Context, entry domain.StockLedgerEntry) error

	// InsertOrder persists the order aggregate: the order row plus all of
	// its lines.
	InsertOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error

	// DeleteCartItems empties a cart.
	DeleteCartItems(ctx context.Context, cartID string) error

	// OrderByNumber loads an order within the transaction, or nil if absent.
	OrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// OrderItems returns the lines of an order.
	OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)

	// TransitionOrderStatus moves an order to a new status only if its
	// current status is one of from (conditional update, checked by affected
	// rows). Returns false when the order was in none of the from statuses.
	TransitionOrderStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error)
}
