// Package events defines the versioned envelope and payloads shared by the
// producers in the API and the lifecycle consumer.
package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventUserCreated        = "UserCreated"
	EventUserDeleted        = "UserDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderLineRef struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type OrderPlacedPayload struct {
	OrderID    string         `json:"order_id"`
	UserID     string         `json:"user_id"`
	Lines      []OrderLineRef `json:"lines"`
	TotalCents int            `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// UserCreatedPayload mirrors what the identity provider emits on signup.
type UserCreatedPayload struct {
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	ImageURL   string `json:"image_url"`
}

type UserDeletedPayload struct {
	ExternalID string `json:"external_id"`
}
