package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
)

// memStock mimics the catalog repo's conditional decrement: check and write
// under one lock, exactly as atomic as the SQL `WHERE stock >= qty` guard.
type memStock struct {
	mu     sync.Mutex
	stock  map[string]int
	prices map[string]int
}

func newMemStock() *memStock {
	return &memStock{stock: map[string]int{}, prices: map[string]int{}}
}

func (m *memStock) add(id string, stock, price int) {
	m.stock[id] = stock
	m.prices[id] = price
}

func (m *memStock) DecrementStock(_ context.Context, id string, qty int) (catalog.StockSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	have, ok := m.stock[id]
	if !ok {
		return catalog.StockSnapshot{}, apperrs.ErrNotFound
	}
	if have < qty {
		return catalog.StockSnapshot{}, &apperrs.StockError{ProductID: id, Requested: qty, Available: have}
	}
	m.stock[id] = have - qty
	return catalog.StockSnapshot{ProductID: id, Name: "p-" + id, PriceCents: m.prices[id]}, nil
}

func (m *memStock) IncrementStock(_ context.Context, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stock[id]; !ok {
		return apperrs.ErrNotFound
	}
	m.stock[id] += qty
	return nil
}

func (m *memStock) level(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[id]
}

func TestReserveExactStock(t *testing.T) {
	st := newMemStock()
	st.add("a", 5, 1200)
	eng := NewEngine(st)

	got, err := eng.Reserve(context.Background(), []Line{{ProductID: "a", Qty: 5}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1200, got[0].PriceCents)
	assert.Equal(t, "p-a", got[0].Name)
	assert.Equal(t, 0, st.level("a"))
}

func TestReserveInsufficientStockLeavesStockUnchanged(t *testing.T) {
	st := newMemStock()
	st.add("a", 5, 1200)
	eng := NewEngine(st)

	_, err := eng.Reserve(context.Background(), []Line{{ProductID: "a", Qty: 6}})

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "a", rej.ProductID)
	assert.Equal(t, 0, rej.Index)
	var se *apperrs.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, se.Requested)
	assert.Equal(t, 5, se.Available)
	assert.Equal(t, 5, st.level("a"))
}

func TestReservePartialFailureRollsBackEarlierLines(t *testing.T) {
	st := newMemStock()
	st.add("a", 10, 100)
	st.add("b", 2, 100)
	eng := NewEngine(st)

	_, err := eng.Reserve(context.Background(), []Line{
		{ProductID: "a", Qty: 2},
		{ProductID: "b", Qty: 3},
	})

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "b", rej.ProductID)
	assert.Equal(t, 1, rej.Index)
	// A was decremented then compensated back
	assert.Equal(t, 10, st.level("a"))
	assert.Equal(t, 2, st.level("b"))
}

func TestReserveMissingProductRollsBack(t *testing.T) {
	st := newMemStock()
	st.add("a", 4, 100)
	eng := NewEngine(st)

	_, err := eng.Reserve(context.Background(), []Line{
		{ProductID: "a", Qty: 1},
		{ProductID: "ghost", Qty: 1},
	})

	require.ErrorIs(t, err, apperrs.ErrNotFound)
	assert.Equal(t, 4, st.level("a"))
}

func TestReserveRejectsBadQuantitiesBeforeAnyMutation(t *testing.T) {
	st := newMemStock()
	st.add("a", 4, 100)
	eng := NewEngine(st)

	for _, qty := range []int{0, -1} {
		_, err := eng.Reserve(context.Background(), []Line{
			{ProductID: "a", Qty: 1},
			{ProductID: "a", Qty: qty},
		})
		var ve *apperrs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, 4, st.level("a"))
	}

	_, err := eng.Reserve(context.Background(), nil)
	var ve *apperrs.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestReserveCoalescesDuplicateProducts(t *testing.T) {
	st := newMemStock()
	st.add("a", 5, 100)
	eng := NewEngine(st)

	// 3+2 fits exactly; processed as independent decrements it would too, but
	// 3+3 must be judged as a single 6 and rejected outright.
	got, err := eng.Reserve(context.Background(), []Line{
		{ProductID: "a", Qty: 3},
		{ProductID: "a", Qty: 2},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Qty)
	assert.Equal(t, 0, st.level("a"))

	st.add("a", 5, 100)
	_, err = eng.Reserve(context.Background(), []Line{
		{ProductID: "a", Qty: 3},
		{ProductID: "a", Qty: 3},
	})
	var se *apperrs.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, se.Requested)
	assert.Equal(t, 5, st.level("a"))
}

func TestReserveConcurrentRaceToLastUnits(t *testing.T) {
	const stock = 10
	st := newMemStock()
	st.add("a", stock, 100)
	eng := NewEngine(st)

	// 25 goroutines each want 1 unit; exactly `stock` must win.
	const callers = 25
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Reserve(context.Background(), []Line{{ProductID: "a", Qty: 1}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			var se *apperrs.StockError
			assert.ErrorAs(t, err, &se)
		}
	}
	assert.Equal(t, stock, wins)
	assert.Equal(t, 0, st.level("a"))
}

func TestReserveConcurrentSumExceedsStockExactlyOneWinner(t *testing.T) {
	st := newMemStock()
	st.add("a", 5, 100)
	eng := NewEngine(st)

	// two callers each ask for 5 of 5; only one can commit
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Reserve(context.Background(), []Line{{ProductID: "a", Qty: 5}})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, st.level("a"))
}

// cancelingStock cancels the request context as soon as the failing line is
// hit, to prove rollback still runs to completion.
type cancelingStock struct {
	*memStock
	cancel context.CancelFunc
	failID string
}

func (c *cancelingStock) DecrementStock(ctx context.Context, id string, qty int) (catalog.StockSnapshot, error) {
	if id == c.failID {
		c.cancel()
		return catalog.StockSnapshot{}, &apperrs.StockError{ProductID: id, Requested: qty}
	}
	if err := ctx.Err(); err != nil {
		return catalog.StockSnapshot{}, err
	}
	return c.memStock.DecrementStock(ctx, id, qty)
}

func (c *cancelingStock) IncrementStock(ctx context.Context, id string, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memStock.IncrementStock(ctx, id, qty)
}

func TestRollbackRunsAfterCallerCancellation(t *testing.T) {
	st := newMemStock()
	st.add("a", 3, 100)
	st.add("b", 3, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cs := &cancelingStock{memStock: st, cancel: cancel, failID: "b"}
	eng := NewEngine(cs)

	_, err := eng.Reserve(ctx, []Line{
		{ProductID: "a", Qty: 2},
		{ProductID: "b", Qty: 1},
	})
	require.Error(t, err)
	require.Error(t, ctx.Err())

	// compensation ignored the dead context and restored A
	assert.Equal(t, 3, st.level("a"))
}

func TestReleaseRestoresCommittedReservation(t *testing.T) {
	st := newMemStock()
	st.add("a", 5, 100)
	st.add("b", 5, 100)
	eng := NewEngine(st)

	got, err := eng.Reserve(context.Background(), []Line{
		{ProductID: "a", Qty: 2},
		{ProductID: "b", Qty: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, st.level("a"))
	assert.Equal(t, 1, st.level("b"))

	eng.Release(context.Background(), got)
	assert.Equal(t, 5, st.level("a"))
	assert.Equal(t, 5, st.level("b"))
}

func TestRejectedErrorUnwraps(t *testing.T) {
	inner := &apperrs.StockError{ProductID: "x", Requested: 2, Available: 1}
	err := &RejectedError{Index: 3, ProductID: "x", Err: inner}
	var se *apperrs.StockError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, inner, se)
}
