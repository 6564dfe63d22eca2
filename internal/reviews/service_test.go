package reviews

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

type fakeOrders struct {
	byID map[string]orders.Order
}

func (f *fakeOrders) Get(_ context.Context, id string) (orders.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return orders.Order{}, apperrs.ErrNotFound
	}
	return o, nil
}

type fakeReviewStore struct {
	created []Review
	seen    map[string]bool
}

func (f *fakeReviewStore) Create(_ context.Context, rv Review) (Review, error) {
	key := rv.UserID + "|" + rv.ProductID + "|" + rv.OrderID
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return Review{}, &apperrs.ConflictError{Msg: "review already exists for this order"}
	}
	f.seen[key] = true
	f.created = append(f.created, rv)
	return rv, nil
}

func completedOrder(userID string, productIDs ...string) orders.Order {
	o := orders.Order{ID: "o1", UserID: userID, Status: orders.StatusCompleted}
	for _, id := range productIDs {
		o.Lines = append(o.Lines, orders.OrderLine{ProductID: id, Qty: 1, PriceCents: 100})
	}
	return o
}

func TestCreateReviewHappyPath(t *testing.T) {
	svc := &Service{
		Orders: &fakeOrders{byID: map[string]orders.Order{"o1": completedOrder("u1", "p1", "p2")}},
		Store:  &fakeReviewStore{},
	}

	rv, err := svc.Create(context.Background(), "u1", CreateInput{
		ProductID: "p2", OrderID: "o1", Rating: 4, Comment: "mantap",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", rv.UserID)
	assert.Equal(t, "p2", rv.ProductID)
}

func TestCreateReviewEligibility(t *testing.T) {
	store := &fakeReviewStore{}
	svc := &Service{
		Orders: &fakeOrders{byID: map[string]orders.Order{
			"o1": completedOrder("u1", "p1"),
			"o2": {ID: "o2", UserID: "u1", Status: orders.StatusShipped,
				Lines: []orders.OrderLine{{ProductID: "p1", Qty: 1}}},
		}},
		Store: store,
	}

	t.Run("foreign order hidden", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "u2", CreateInput{ProductID: "p1", OrderID: "o1", Rating: 5, Comment: "x"})
		assert.ErrorIs(t, err, apperrs.ErrNotFound)
	})

	t.Run("order not completed", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "u1", CreateInput{ProductID: "p1", OrderID: "o2", Rating: 5, Comment: "x"})
		var ve *apperrs.ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("product not in order", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "u1", CreateInput{ProductID: "p9", OrderID: "o1", Rating: 5, Comment: "x"})
		var ve *apperrs.ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("rating out of range", func(t *testing.T) {
		for _, rating := range []int{0, 6, -1} {
			_, err := svc.Create(context.Background(), "u1", CreateInput{ProductID: "p1", OrderID: "o1", Rating: rating, Comment: "x"})
			var ve *apperrs.ValidationError
			assert.ErrorAs(t, err, &ve)
		}
	})

	assert.Empty(t, store.created, "no review persisted by ineligible requests")
}

func TestCreateReviewDuplicateConflicts(t *testing.T) {
	svc := &Service{
		Orders: &fakeOrders{byID: map[string]orders.Order{"o1": completedOrder("u1", "p1")}},
		Store:  &fakeReviewStore{},
	}
	in := CreateInput{ProductID: "p1", OrderID: "o1", Rating: 5, Comment: "bagus"}

	_, err := svc.Create(context.Background(), "u1", in)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "u1", in)
	var ce *apperrs.ConflictError
	require.ErrorAs(t, err, &ce)
}
