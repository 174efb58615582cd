package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/core/domain"
	"github.com/oakmart/storefront/internal/port"
)

// InventoryService applies non-checkout stock changes: restocks and manual
// adjustments. Every change lands in the same append-only ledger checkout
// writes to, so the ledger stays a complete account of stock movement.
type InventoryService struct {
	store  port.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewInventoryService(store port.Store, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{store: store, logger: logger, now: time.Now}
}

// AdjustStock applies a signed stock change with its audit entry in one
// transaction. Negative deltas use the same conditional update as checkout,
// so an adjustment can never drive stock below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, productID string, delta int, reason domain.StockChangeReason, actorID string) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("adjust stock: delta must be non-zero")
	}

	var after int
	err := s.store.RunInTransaction(ctx, func(tx port.Tx) error {
		p, err := tx.Product(ctx, productID)
		if err != nil {
			return fmt.Errorf("load product: %w", err)
		}
		if p == nil {
			return &ProductUnavailableError{ProductID: productID}
		}

		var newStock int
		if delta > 0 {
			newStock, err = tx.IncrementStock(ctx, productID, delta)
			if err != nil {
				return fmt.Errorf("increment stock: %w", err)
			}
		} else {
			var ok bool
			ok, newStock, err = tx.DecrementStock(ctx, productID, -delta)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return &ProductUnavailableError{
					ProductID: p.ID,
					Name:      p.Name,
					Requested: -delta,
					Available: p.Stock,
				}
			}
		}

		entry := domain.StockLedgerEntry{
			ID:        uuid.NewString(),
			ProductID: productID,
			OldStock:  newStock - delta,
			NewStock:  newStock,
			Change:    delta,
			Reason:    reason,
			ActorID:   actorID,
			CreatedAt: s.now(),
		}
		if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		after = newStock
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", productID),
		zap.Int("delta", delta),
		zap.String("reason", string(reason)),
		zap.Int("stock", after))
	return after, nil
}
