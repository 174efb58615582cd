package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is the immutable record of a completed checkout. Only Status and
// PaymentStatus change after creation.
//
// Invariant: Total = SubTotal + ShippingCost + Tax - Discount.
type Order struct {
	ID                string
	OrderNumber       string
	UserID            string
	ShippingAddressID string
	PaymentMethod     string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	SubTotal          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	CouponID          string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem snapshots a product at the moment of purchase. It stays frozen
// even if the product is renamed or re-priced later.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// CancellableFrom lists the statuses an order may be cancelled from.
var CancellableFrom = []OrderStatus{OrderStatusPending, OrderStatusConfirmed}
