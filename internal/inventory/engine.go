// Package inventory implements all-or-nothing stock reservation on top of
// the catalog's atomic per-product decrement. Atomicity across products is
// simulated with compensating increments applied in reverse order of success.
package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
)

// Stock is the storage contract the engine reserves against. DecrementStock
// must be atomic at the single-product level (decrement-where-enough, never
// read-then-write) and return the product's current name and unit price.
type Stock interface {
	DecrementStock(ctx context.Context, productID string, qty int) (catalog.StockSnapshot, error)
	IncrementStock(ctx context.Context, productID string, qty int) error
}

type Line struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// ReservedLine is a committed decrement plus the price/name snapshot taken at
// the moment of reservation.
type ReservedLine struct {
	ProductID  string
	Name       string
	Qty        int
	PriceCents int
}

// RejectedError reports which line sank the reservation. Index refers to the
// first occurrence of the product in the request as submitted.
type RejectedError struct {
	Index     int
	ProductID string
	Err       error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("reservation rejected at line %d (product %s): %v", e.Index, e.ProductID, e.Err)
}
func (e *RejectedError) Unwrap() error { return e.Err }

type Engine struct {
	Stock Stock
}

func NewEngine(s Stock) *Engine { return &Engine{Stock: s} }

// Reserve commits every line's decrement or none. On the first failing line
// all previously applied decrements are undone, newest first, before the
// rejection is returned. Rollback is not cancellable: a caller abort between
// partial reservation and return must not leak stock.
func (e *Engine) Reserve(ctx context.Context, lines []Line) ([]ReservedLine, error) {
	if len(lines) == 0 {
		return nil, apperrs.Invalid("lines", "must not be empty")
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return nil, apperrs.Invalid("lines", fmt.Sprintf("line %d: missing product id", i))
		}
		if l.Qty <= 0 {
			return nil, apperrs.Invalid("lines", fmt.Sprintf("line %d: quantity must be >= 1", i))
		}
	}

	merged := coalesce(lines)

	applied := make([]ReservedLine, 0, len(merged))
	for _, m := range merged {
		snap, err := e.Stock.DecrementStock(ctx, m.ProductID, m.Qty)
		if err != nil {
			e.rollback(ctx, applied)
			return nil, &RejectedError{Index: m.FirstIndex, ProductID: m.ProductID, Err: err}
		}
		applied = append(applied, ReservedLine{
			ProductID:  snap.ProductID,
			Name:       snap.Name,
			Qty:        m.Qty,
			PriceCents: snap.PriceCents,
		})
	}
	return applied, nil
}

// Release undoes a previously committed reservation, e.g. when persisting the
// order fails after the stock was already taken.
func (e *Engine) Release(ctx context.Context, reserved []ReservedLine) {
	e.rollback(ctx, reserved)
}

func (e *Engine) rollback(ctx context.Context, applied []ReservedLine) {
	// survives caller cancellation: a half-rolled-back reservation loses stock
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		l := applied[i]
		if err := e.Stock.IncrementStock(ctx, l.ProductID, l.Qty); err != nil {
			slog.Error("reservation rollback failed", "product_id", l.ProductID, "qty", l.Qty, "err", err)
		}
	}
}

type mergedLine struct {
	ProductID  string
	Qty        int
	FirstIndex int
}

// coalesce sums duplicate product ids so each product is decremented exactly
// once per request, keeping first-occurrence order.
func coalesce(lines []Line) []mergedLine {
	byID := make(map[string]int, len(lines))
	out := make([]mergedLine, 0, len(lines))
	for i, l := range lines {
		if at, ok := byID[l.ProductID]; ok {
			out[at].Qty += l.Qty
			continue
		}
		byID[l.ProductID] = len(out)
		out = append(out, mergedLine{ProductID: l.ProductID, Qty: l.Qty, FirstIndex: i})
	}
	return out
}
