// Package apperrs holds the error taxonomy shared by services and the HTTP
// layer. Handlers map these onto status codes; anything unrecognized is an
// internal error.
package apperrs

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError rejects a malformed request before any storage access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StockError means a reservation was rejected on the named product.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ConflictError covers uniqueness violations (duplicate review, duplicate
// idempotency key racing).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// UpstreamError wraps a failure from an external collaborator (media host,
// broker). Never swallowed; callers decide whether to retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("upstream %s: %v", e.Op, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

// TransitionError rejects an illegal order status transition.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}
