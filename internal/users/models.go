package users

import (
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/catalog"
)

type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Address struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	FullName      string `json:"full_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	ZipCode       string `json:"zip_code"`
	Phone         string `json:"phone,omitempty"`
	IsDefault     bool   `json:"is_default"`
}

type CartItem struct {
	Product catalog.Product `json:"product"`
	Qty     int             `json:"qty"`
}
