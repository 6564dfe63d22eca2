package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
)

type Repo struct{ DB *pgxpool.Pool }

// Create inserts the review and refreshes the product's average rating in
// one transaction. The unique index on (user_id, product_id, order_id) makes
// duplicate submission a conflict even under concurrency; this is the actual
// one-review-per-purchase enforcement, not the service-level checks.
func (r *Repo) Create(ctx context.Context, rv Review) (Review, error) {
	rv.ID = uuid.NewString()
	rv.CreatedAt = time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Review{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO reviews(id, user_id, product_id, order_id, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rv.ID, rv.UserID, rv.ProductID, rv.OrderID, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Review{}, &apperrs.ConflictError{Msg: "review already exists for this order"}
		}
		return Review{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET average_rating = (SELECT COALESCE(AVG(rating),0) FROM reviews WHERE product_id=$1)
		WHERE id=$1`, rv.ProductID)
	if err != nil {
		return Review{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Review{}, err
	}
	return rv, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Review, error) {
	var rv Review
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, product_id, order_id, rating, comment, created_at
		FROM reviews WHERE id=$1`, id).
		Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.OrderID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, apperrs.ErrNotFound
	}
	return rv, err
}

func (r *Repo) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, product_id, order_id, rating, comment, created_at
		FROM reviews WHERE product_id=$1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.OrderID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// HasReviewed reports whether the user left any review on the order.
func (r *Repo) HasReviewed(ctx context.Context, userID, orderID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id=$1 AND order_id=$2)`,
		userID, orderID).Scan(&exists)
	return exists, err
}
