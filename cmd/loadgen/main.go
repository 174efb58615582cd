package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/adapter/notifier"
	"github.com/oakmart/storefront/internal/adapter/storage"
	"github.com/oakmart/storefront/internal/config"
	"github.com/oakmart/storefront/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
	productID     = "loadgen-hot-item"
)

// Seeds one scarce product and a cart per simulated user, then fires
// concurrent checkouts at it. Exactly initialStock checkouts must succeed
// and the final stock must be zero.
func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	if err := seed(ctx, db); err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisAdapter(rdb)
	coupons := storage.NewMySQLCouponService(db)
	addresses := storage.NewMySQLAddressService(db)
	checkout := service.NewCheckoutService(store, cache, coupons, addresses, notifier.Nop{}, zap.NewNop())

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			userID := fmt.Sprintf("loadgen-user-%d", i)
			_, _, err := checkout.Checkout(ctx, service.CheckoutRequest{
				RequestID:         uuid.NewString(),
				UserID:            userID,
				ShippingAddressID: "loadgen-addr-" + userID,
				PaymentMethod:     "card",
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	var finalStock int
	db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&finalStock)
	fmt.Printf("Final Stock: %d\n", finalStock)
	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}

	var ledgerUnits int
	db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(old_stock - new_stock), 0)
		FROM stock_ledger WHERE product_id = ? AND reason = 'sale'`, productID).Scan(&ledgerUnits)
	if ledgerUnits == initialStock {
		fmt.Printf("PASS: Ledger accounts for all %d units\n", initialStock)
	} else {
		fmt.Printf("FAIL: Ledger accounts for %d units, expected %d\n", ledgerUnits, initialStock)
	}
}

func seed(ctx context.Context, db *sql.DB) error {
	// Clear previous runs
	for _, stmt := range []string{
		`DELETE FROM stock_ledger WHERE product_id = ?`,
		`DELETE FROM order_items WHERE product_id = ?`,
	} {
		if _, err := db.ExecContext(ctx, stmt, productID); err != nil {
			return err
		}
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM orders WHERE user_id LIKE 'loadgen-user-%'`); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, price, stock)
		VALUES (?, 'Loadgen Hot Item', 'SKU-LOADGEN', '49.99', ?)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock)`, productID, initialStock); err != nil {
		return err
	}

	for i := 0; i < totalRequests; i++ {
		userID := fmt.Sprintf("loadgen-user-%d", i)
		cartID := "loadgen-cart-" + userID

		if _, err := db.ExecContext(ctx, `
			INSERT INTO addresses (id, user_id) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE user_id = VALUES(user_id)`,
			"loadgen-addr-"+userID, userID); err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO carts (id, user_id) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE id = id`, cartID, userID); err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, 1, '49.99')`, uuid.NewString(), cartID, productID); err != nil {
			return err
		}
	}
	return nil
}
