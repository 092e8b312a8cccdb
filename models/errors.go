package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrEmptyCart           = errors.New("cart is empty, nothing to order")
	ErrInvalidProduct      = errors.New("order references a product that does not exist")
	ErrSessionMismatch     = errors.New("session id does not match this order")
	ErrInvalidOutcome      = errors.New("outcome must be approved, declined or canceled")
	ErrConcurrencyConflict = errors.New("concurrent stock update detected, please retry")
	ErrNotFound            = errors.New("not found")
)

// ProductUnavailableError reports a line whose product is inactive or deleted.
type ProductUnavailableError struct {
	ProductID int
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %q is no longer available", e.Name)
}

// InsufficientStockError carries enough detail for the caller to act: which
// product, how much is available vs requested.
type InsufficientStockError struct {
	ProductID int
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d",
		e.Name, e.Available, e.Requested)
}
