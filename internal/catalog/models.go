package catalog

import "time"

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PriceCents    int       `json:"price_cents"`
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`
	ImageURLs     []string  `json:"image_urls"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StockSnapshot is what a successful decrement hands back: enough to build an
// order line without re-reading the product.
type StockSnapshot struct {
	ProductID  string
	Name       string
	PriceCents int
}

// ProductInput is the validated shape for admin create/update.
type ProductInput struct {
	Name        string
	Description string
	PriceCents  int
	Stock       int
	Category    string
	ImageURLs   []string
}
