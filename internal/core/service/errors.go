package service

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidAddress   = errors.New("shipping address does not belong to user")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCancelNotAllowed = errors.New("order can no longer be cancelled")

	// ErrProductUnavailable covers a missing product or insufficient stock
	// found during validation.
	ErrProductUnavailable = errors.New("product unavailable")

	// ErrStockRaceLost means validation passed but the authoritative
	// decrement found another checkout had depleted the stock first. Callers
	// treat it like ErrProductUnavailable; it exists for diagnosing
	// contention.
	ErrStockRaceLost = errors.New("lost stock race")
)

// ProductUnavailableError identifies the offending product so the user can
// remove or reduce that line.
type ProductUnavailableError struct {
	ProductID string
	Name      string
	Requested int
	Available int
	RaceLost  bool
}

func (e *ProductUnavailableError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	if e.RaceLost {
		return fmt.Sprintf("product %q sold out during checkout (requested %d, %d left)", name, e.Requested, e.Available)
	}
	return fmt.Sprintf("product %q unavailable (requested %d, %d in stock)", name, e.Requested, e.Available)
}

func (e *ProductUnavailableError) Unwrap() []error {
	if e.RaceLost {
		return []error{ErrStockRaceLost, ErrProductUnavailable}
	}
	return []error{ErrProductUnavailable}
}
