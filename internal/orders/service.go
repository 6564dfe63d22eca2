package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/inventory"
)

// Store is the slice of the repo the assembly service needs.
type Store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	FindByExternalID(ctx context.Context, externalID string) (Order, error)
	UpdateStatus(ctx context.Context, id string, to Status) (Order, error)
}

// Reserver is the inventory engine contract: all-or-nothing reservation and
// its compensating release.
type Reserver interface {
	Reserve(ctx context.Context, lines []inventory.Line) ([]inventory.ReservedLine, error)
	Release(ctx context.Context, reserved []inventory.ReservedLine)
}

type Service struct {
	Store    Store
	Reserver Reserver
}

type PlaceOrderInput struct {
	// ExternalID is the optional client idempotency key; reuse returns the
	// order created for it the first time.
	ExternalID      string
	Lines           []inventory.Line
	ShippingAddress Address
	PaymentResult   PaymentResult
}

// PlaceOrder validates the request, reserves stock, then persists the order
// with snapshots taken from the reservation. Totals are computed here from
// catalog prices; whatever the client claims the total is never consulted.
// On rejection nothing is persisted. If the insert fails after a committed
// reservation the stock is released before the error propagates.
func (s *Service) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (Order, error) {
	if userID == "" {
		return Order{}, apperrs.Invalid("user", "missing")
	}
	if err := validateAddress(in.ShippingAddress); err != nil {
		return Order{}, err
	}
	if in.PaymentResult.Ref == "" || in.PaymentResult.Status == "" {
		return Order{}, apperrs.Invalid("payment_result", "ref and status are required")
	}

	if in.ExternalID != "" {
		existing, err := s.Store.FindByExternalID(ctx, in.ExternalID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperrs.ErrNotFound) {
			return Order{}, err
		}
	}

	reserved, err := s.Reserver.Reserve(ctx, in.Lines)
	if err != nil {
		return Order{}, err
	}

	now := time.Now().UTC()
	o := Order{
		ID:              uuid.NewString(),
		ExternalID:      in.ExternalID,
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: in.ShippingAddress,
		PaymentResult:   in.PaymentResult,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, rl := range reserved {
		o.Lines = append(o.Lines, OrderLine{
			ProductID:  rl.ProductID,
			Name:       rl.Name,
			Qty:        rl.Qty,
			PriceCents: rl.PriceCents,
		})
	}
	o.TotalCents = o.LineTotal()

	if err := s.Store.Create(ctx, o); err != nil {
		s.Reserver.Release(ctx, reserved)
		var conflict *apperrs.ConflictError
		if errors.As(err, &conflict) && in.ExternalID != "" {
			// concurrent request with the same idempotency key committed first
			return s.Store.FindByExternalID(ctx, in.ExternalID)
		}
		return Order{}, err
	}
	return o, nil
}

// Transition moves an order through the status machine.
func (s *Service) Transition(ctx context.Context, orderID string, to Status) (Order, error) {
	if !ValidStatus(to) {
		return Order{}, apperrs.Invalid("status", "unknown status "+string(to))
	}
	return s.Store.UpdateStatus(ctx, orderID, to)
}

func validateAddress(a Address) error {
	switch {
	case a.FullName == "":
		return apperrs.Invalid("shipping_address.full_name", "required")
	case a.StreetAddress == "":
		return apperrs.Invalid("shipping_address.street_address", "required")
	case a.City == "":
		return apperrs.Invalid("shipping_address.city", "required")
	case a.State == "":
		return apperrs.Invalid("shipping_address.state", "required")
	case a.ZipCode == "":
		return apperrs.Invalid("shipping_address.zip_code", "required")
	}
	return nil
}
