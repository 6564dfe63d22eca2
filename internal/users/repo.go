package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
)

type Repo struct{ DB *pgxpool.Pool }

const userCols = `id, external_id, name, email, image_url, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repo) GetByExternalID(ctx context.Context, externalID string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE external_id=$1`, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperrs.ErrNotFound
	}
	return u, err
}

func (r *Repo) Get(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperrs.ErrNotFound
	}
	return u, err
}

// Upsert creates the user record for an external identity if it does not
// exist yet. Applying the same identity twice yields exactly one record, so
// both the sync consumer and first-sight creation in the auth middleware can
// call it blindly.
func (r *Repo) Upsert(ctx context.Context, externalID, name, email, imageURL string) (User, error) {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, external_id, name, email, image_url)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (external_id) DO NOTHING`,
		uuid.NewString(), externalID, name, email, imageURL)
	if err != nil {
		return User{}, err
	}
	return r.GetByExternalID(ctx, externalID)
}

// DeleteByExternalID removes the user; deleting one already gone is a no-op.
func (r *Repo) DeleteByExternalID(ctx context.Context, externalID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM users WHERE external_id=$1`, externalID)
	return err
}

func (r *Repo) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ---- addresses ----

const addrCols = `id, label, full_name, street_address, city, state, country, zip_code, phone, is_default`

func scanAddress(row pgx.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.Label, &a.FullName, &a.StreetAddress, &a.City,
		&a.State, &a.Country, &a.ZipCode, &a.Phone, &a.IsDefault)
	return a, err
}

func (r *Repo) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+addrCols+` FROM addresses WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAddress inserts an address; when the new one is flagged default, every
// other default for the user is cleared in the same transaction. A partial
// unique index on (user_id) WHERE is_default backs the at-most-one invariant
// against writers that skip this path.
func (r *Repo) AddAddress(ctx context.Context, userID string, a Address) (Address, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Address{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if a.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default=false WHERE user_id=$1 AND is_default`, userID); err != nil {
			return Address{}, err
		}
	}
	a.ID = uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO addresses(id, user_id, label, full_name, street_address, city, state, country, zip_code, phone, is_default)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, userID, a.Label, a.FullName, a.StreetAddress, a.City, a.State, a.Country, a.ZipCode, a.Phone, a.IsDefault)
	if err != nil {
		return Address{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Address{}, err
	}
	return a, nil
}

func (r *Repo) UpdateAddress(ctx context.Context, userID, addressID string, a Address) (Address, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Address{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if a.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default=false WHERE user_id=$1 AND is_default AND id<>$2`, userID, addressID); err != nil {
			return Address{}, err
		}
	}
	ct, err := tx.Exec(ctx, `
		UPDATE addresses
		SET label=$3, full_name=$4, street_address=$5, city=$6, state=$7, country=$8, zip_code=$9, phone=$10, is_default=$11
		WHERE id=$2 AND user_id=$1`,
		userID, addressID, a.Label, a.FullName, a.StreetAddress, a.City, a.State, a.Country, a.ZipCode, a.Phone, a.IsDefault)
	if err != nil {
		return Address{}, err
	}
	if ct.RowsAffected() == 0 {
		return Address{}, apperrs.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return Address{}, err
	}
	a.ID = addressID
	return a, nil
}

func (r *Repo) DeleteAddress(ctx context.Context, userID, addressID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM addresses WHERE id=$2 AND user_id=$1`, userID, addressID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperrs.ErrNotFound
	}
	return nil
}

// ---- wishlist ----

func (r *Repo) ListWishlist(ctx context.Context, userID string) ([]catalog.Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.description, p.price_cents, p.stock, p.category,
			p.image_urls, p.average_rating, p.created_at, p.updated_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id=$1
		ORDER BY w.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock,
			&p.Category, &p.ImageURLs, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) AddToWishlist(ctx context.Context, userID, productID string) error {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO wishlist_items(user_id, product_id)
		VALUES ($1,$2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &apperrs.ConflictError{Msg: "product already in wishlist"}
	}
	return nil
}

func (r *Repo) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

// ---- cart ----

func (r *Repo) GetCart(ctx context.Context, userID string) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.description, p.price_cents, p.stock, p.category,
			p.image_urls, p.average_rating, p.created_at, p.updated_at, c.qty
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1
		ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var it CartItem
		p := &it.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock,
			&p.Category, &p.ImageURLs, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddToCart adds qty to the existing line or inserts a new one.
func (r *Repo) AddToCart(ctx context.Context, userID, productID string, qty int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items(user_id, product_id, qty)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`,
		userID, productID, qty)
	return err
}

// SetCartQty sets the line quantity; qty <= 0 removes the line.
func (r *Repo) SetCartQty(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return r.RemoveFromCart(ctx, userID, productID)
	}
	ct, err := r.DB.Exec(ctx, `UPDATE cart_items SET qty=$3 WHERE user_id=$1 AND product_id=$2`, userID, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperrs.ErrNotFound
	}
	return nil
}

func (r *Repo) RemoveFromCart(ctx context.Context, userID, productID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (r *Repo) ClearCart(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
