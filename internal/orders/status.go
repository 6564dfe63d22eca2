package orders

import (
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// shipped -> pending is an administrative correction; completed and
// cancelled are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusCompleted: true, StatusCancelled: true, StatusPending: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

// ApplyTransition mutates the order for a status change, maintaining the
// timestamp rules: shipped stamps ShippedAt, completed stamps DeliveredAt,
// a correction back to pending clears both.
func ApplyTransition(o *Order, to Status, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return &apperrs.TransitionError{From: string(o.Status), To: string(to)}
	}
	o.Status = to
	switch to {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusCompleted:
		o.DeliveredAt = &now
	case StatusPending:
		o.ShippedAt = nil
		o.DeliveredAt = nil
	}
	o.UpdatedAt = now
	return nil
}
