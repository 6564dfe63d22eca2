package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, COALESCE(external_id,''), user_id, status, total_cents,
	shipping_address, payment_ref, payment_status, shipped_at, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var addr []byte
	err := row.Scan(&o.ID, &o.ExternalID, &o.UserID, &o.Status, &o.TotalCents,
		&addr, &o.PaymentResult.Ref, &o.PaymentResult.Status,
		&o.ShippedAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Create persists the order and its lines in one transaction. The caller has
// already reserved stock; a failure here must be followed by a release.
func (r *Repo) Create(ctx context.Context, o Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, status, total_cents,
			shipping_address, payment_ref, payment_status)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8)`,
		o.ID, o.ExternalID, o.UserID, o.Status, o.TotalCents,
		addr, o.PaymentResult.Ref, o.PaymentResult.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// another request with the same external_id won the race
			return &apperrs.ConflictError{Msg: "order already exists for external id " + o.ExternalID}
		}
		return err
	}

	for _, l := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, l.ProductID, l.Name, l.Qty, l.PriceCents)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperrs.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	lines, err := r.linesFor(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines[id]
	return o, nil
}

func (r *Repo) FindByExternalID(ctx context.Context, externalID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE external_id=$1`, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperrs.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	lines, err := r.linesFor(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

func (r *Repo) linesFor(ctx context.Context, orderIDs []string) (map[string][]OrderLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, qty, price_cents
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderLine, len(orderIDs))
	for rows.Next() {
		var oid string
		var l OrderLine
		if err := rows.Scan(&oid, &l.ProductID, &l.Name, &l.Qty, &l.PriceCents); err != nil {
			return nil, err
		}
		out[oid] = append(out[oid], l)
	}
	return out, rows.Err()
}

// UpdateStatus applies a transition under a row lock so two admins racing on
// the same order serialize; the loser sees the new status and gets a
// transition error if its move is no longer legal.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperrs.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	if err := ApplyTransition(&o, to, time.Now().UTC()); err != nil {
		return Order{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET status=$2, shipped_at=$3, delivered_at=$4, updated_at=$5
		WHERE id=$1`,
		o.ID, o.Status, o.ShippedAt, o.DeliveredAt, o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}

	lines, err := r.linesFor(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

type Stats struct {
	TotalOrders       int `json:"total_orders"`
	TotalRevenueCents int `json:"total_revenue_cents"`
	AvgOrderCents     int `json:"avg_order_cents"`
	MaxOrderCents     int `json:"max_order_cents"`
	MinOrderCents     int `json:"min_order_cents"`
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_cents),0),
			COALESCE(AVG(total_cents),0)::bigint,
			COALESCE(MAX(total_cents),0),
			COALESCE(MIN(total_cents),0)
		FROM orders`).Scan(&s.TotalOrders, &s.TotalRevenueCents, &s.AvgOrderCents, &s.MaxOrderCents, &s.MinOrderCents)
	return s, err
}
