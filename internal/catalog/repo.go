package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price_cents, stock, category, image_urls, average_rating, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock,
		&p.Category, &p.ImageURLs, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperrs.ErrNotFound
	}
	return p, err
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, in ProductInput) (Product, error) {
	id := uuid.NewString()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock, category, image_urls)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, in.Name, in.Description, in.PriceCents, in.Stock, in.Category, in.ImageURLs)
	if err != nil {
		return Product{}, err
	}
	return r.Get(ctx, id)
}

func (r *Repo) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price_cents=$4, category=$5, image_urls=$6, updated_at=now()
		WHERE id=$1`,
		id, in.Name, in.Description, in.PriceCents, in.Category, in.ImageURLs)
	if err != nil {
		return Product{}, err
	}
	if ct.RowsAffected() == 0 {
		return Product{}, apperrs.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperrs.ErrNotFound
	}
	return nil
}

// DecrementStock is the single-product reservation primitive: one conditional
// UPDATE guarded by `stock >= qty`, so two callers racing for the last units
// serialize inside the database and stock can never go negative.
func (r *Repo) DecrementStock(ctx context.Context, id string, qty int) (StockSnapshot, error) {
	s := StockSnapshot{ProductID: id}
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1 AND stock >= $2
		RETURNING name, price_cents`, id, qty).Scan(&s.Name, &s.PriceCents)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return s, err
	}
	// no row matched: missing product or not enough stock
	var stock int
	err = r.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, apperrs.ErrNotFound
	}
	if err != nil {
		return s, err
	}
	return s, &apperrs.StockError{ProductID: id, Requested: qty, Available: stock}
}

// IncrementStock is the compensating inverse of DecrementStock.
func (r *Repo) IncrementStock(ctx context.Context, id string, qty int) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperrs.ErrNotFound
	}
	return nil
}
