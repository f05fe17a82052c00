package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidStockData   = errors.New("invalid stock data")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrConflictInProgress = errors.New("another change to this line is in progress")
	ErrEmptySelection     = errors.New("select at least one brand group")
	ErrInvalidAddress     = errors.New("invalid shipping address")
	ErrInvalidPayment     = errors.New("unsupported payment method")
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	// ErrCartStale means a cart change was applied but the cart could not be re-read.
	ErrCartStale = errors.New("cart changed but could not be reloaded")
)

// InsufficientStockError reports the quantity that is actually available.
type InsufficientStockError struct {
	Item      ItemRef
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d available", e.Item.ID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// AddressError carries one message per invalid address field.
type AddressError struct {
	Fields map[string]string
}

func (e *AddressError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid shipping address (" + strings.Join(parts, "; ") + ")"
}

func (e *AddressError) Is(target error) bool {
	return target == ErrInvalidAddress
}
