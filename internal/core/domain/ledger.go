package domain

import "time"

type StockChangeReason string

const (
	StockReasonSale       StockChangeReason = "sale"
	StockReasonRestock    StockChangeReason = "restock"
	StockReasonAdjustment StockChangeReason = "adjustment"
	StockReasonReturn     StockChangeReason = "return"
)

// StockLedgerEntry is an append-only audit record of one stock mutation.
// Entries are never updated or deleted; they reference the product by id
// only, so they survive product changes.
type StockLedgerEntry struct {
	ID        string
	ProductID string
	OldStock  int
	NewStock  int
	Change    int // signed; negative for sales
	Reason    StockChangeReason
	ActorID   string
	CreatedAt time.Time
}
