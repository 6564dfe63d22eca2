package reviews

import (
	"context"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

type OrderReader interface {
	Get(ctx context.Context, id string) (orders.Order, error)
}

type Store interface {
	Create(ctx context.Context, rv Review) (Review, error)
}

type Service struct {
	Orders OrderReader
	Store  Store
}

// Create checks eligibility and persists the review. Eligible means: the
// order is the requester's, it has been completed, and the product is one of
// its lines. Product membership is matched on normalized line product ids.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Review, error) {
	if in.ProductID == "" || in.OrderID == "" {
		return Review{}, apperrs.Invalid("review", "product_id and order_id are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return Review{}, apperrs.Invalid("rating", "must be between 1 and 5")
	}
	if in.Comment == "" {
		return Review{}, apperrs.Invalid("comment", "required")
	}

	o, err := s.Orders.Get(ctx, in.OrderID)
	if err != nil {
		return Review{}, err
	}
	if o.UserID != userID {
		// don't reveal other users' orders
		return Review{}, apperrs.ErrNotFound
	}
	if o.Status != orders.StatusCompleted {
		return Review{}, apperrs.Invalid("order", "not completed")
	}
	if !containsProduct(o.Lines, in.ProductID) {
		return Review{}, apperrs.Invalid("product_id", "not part of this order")
	}

	return s.Store.Create(ctx, Review{
		UserID:    userID,
		ProductID: in.ProductID,
		OrderID:   in.OrderID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	})
}

func containsProduct(lines []orders.OrderLine, productID string) bool {
	for _, l := range lines {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}
