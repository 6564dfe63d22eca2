package reviews

import "time"

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInput struct {
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}
