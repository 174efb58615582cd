package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/oakmart/storefront/internal/core/domain"
	"github.com/oakmart/storefront/internal/port"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same read/write
// helpers serve transactional and plain access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// RunInTransaction begins a transaction, runs fn, and commits only if fn
// returns nil. The deferred rollback is a no-op after a successful commit.
func (m *MySQLStore) RunInTransaction(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *MySQLStore) Product(ctx context.Context, productID string) (*domain.Product, error) {
	return queryProduct(ctx, m.db, productID)
}

func (m *MySQLStore) OrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, []domain.OrderItem, error) {
	order, err := queryOrderByNumber(ctx, m.db, orderNumber)
	if err != nil || order == nil {
		return nil, nil, err
	}
	items, err := queryOrderItems(ctx, m.db, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) CartForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var c domain.Cart
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts WHERE user_id = ?`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return &c, nil
}

func (t *mysqlTx) CartItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
		FROM cart_items WHERE cart_id = ? ORDER BY created_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *mysqlTx) Product(ctx context.Context, productID string) (*domain.Product, error) {
	return queryProduct(ctx, t.tx, productID)
}

// DecrementStock is the authoritative conditional decrement: the WHERE
// clause re-checks sufficiency in the same statement as the write, so two
// racing checkouts can never both succeed past available stock. A zero
// affected-row count signals the caller lost the race.
func (t *mysqlTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, int, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		qty, productID, qty,
	)
	if err != nil {
		return false, 0, fmt.Errorf("decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("decrement stock rows: %w", err)
	}

	var stock int
	err = t.tx.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = ?`, productID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("read stock: %w", err)
	}

	return rows > 0, stock, nil
}

func (t *mysqlTx) IncrementStock(ctx context.Context, productID string, qty int) (int, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = NOW()
		WHERE id = ?`,
		qty, productID,
	)
	if err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment stock rows: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("increment stock: product %s not found", productID)
	}

	var stock int
	if err := t.tx.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = ?`, productID,
	).Scan(&stock); err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return stock, nil
}

func (t *mysqlTx) AppendLedgerEntry(ctx context.Context, e domain.StockLedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_ledger (id, product_id, old_stock, new_stock, change_amount, reason, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProductID, e.OldStock, e.NewStock, e.Change, e.Reason, e.ActorID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (t *mysqlTx) InsertOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, user_id, shipping_address_id, payment_method,
			status, payment_status, subtotal, shipping_cost, tax, discount, total,
			coupon_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderNumber, order.UserID, order.ShippingAddressID, order.PaymentMethod,
		order.Status, order.PaymentStatus, order.SubTotal, order.ShippingCost, order.Tax,
		order.Discount, order.Total, nullable(order.CouponID), nullable(order.Notes),
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, sku, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.SKU, it.Quantity, it.UnitPrice, it.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *mysqlTx) DeleteCartItems(ctx context.Context, cartID string) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

func (t *mysqlTx) OrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return queryOrderByNumber(ctx, t.tx, orderNumber)
}

func (t *mysqlTx) OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return queryOrderItems(ctx, t.tx, orderID)
}

func (t *mysqlTx) TransitionOrderStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	args := make([]any, 0, len(from)+2)
	args = append(args, to, orderID)
	for _, s := range from {
		args = append(args, s)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")

	result, err := t.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE orders SET status = ?, updated_at = NOW()
		WHERE id = ? AND status IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("transition order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition order status rows: %w", err)
	}
	return rows > 0, nil
}

func queryProduct(ctx context.Context, q querier, productID string) (*domain.Product, error) {
	var p domain.Product
	err := q.QueryRowContext(ctx, `
		SELECT id, name, sku, price, stock, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func queryOrderByNumber(ctx context.Context, q querier, orderNumber string) (*domain.Order, error) {
	var (
		o        domain.Order
		couponID sql.NullString
		notes    sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, shipping_address_id, payment_method,
			status, payment_status, subtotal, shipping_cost, tax, discount, total,
			coupon_id, notes, created_at, updated_at
		FROM orders WHERE order_number = ?`, orderNumber,
	).Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.ShippingAddressID, &o.PaymentMethod,
		&o.Status, &o.PaymentStatus, &o.SubTotal, &o.ShippingCost, &o.Tax, &o.Discount,
		&o.Total, &couponID, &notes, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	o.CouponID = couponID.String
	o.Notes = notes.String
	return &o, nil
}

func queryOrderItems(ctx context.Context, q querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, sku, quantity, unit_price, total_price
		FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.SKU, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
