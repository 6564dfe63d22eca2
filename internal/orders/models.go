package orders

import "time"

type Order struct {
	ID              string        `json:"id"`
	ExternalID      string        `json:"external_id,omitempty"`
	UserID          string        `json:"user_id"`
	Status          Status        `json:"status"`
	Lines           []OrderLine   `json:"lines"`
	ShippingAddress Address       `json:"shipping_address"`
	PaymentResult   PaymentResult `json:"payment_result"`
	TotalCents      int           `json:"total_cents"`
	ShippedAt       *time.Time    `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderLine snapshots price and name at purchase time. Later catalog edits
// never touch persisted lines.
type OrderLine struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

// Address is the shipping snapshot embedded in the order.
type Address struct {
	FullName      string `json:"full_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country,omitempty"`
	ZipCode       string `json:"zip_code"`
	Phone         string `json:"phone,omitempty"`
}

type PaymentResult struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

// LineTotal sums the snapshotted line amounts; persisted TotalCents must
// always equal this.
func (o Order) LineTotal() int {
	total := 0
	for _, l := range o.Lines {
		total += l.PriceCents * l.Qty
	}
	return total
}
