package redisx

import "time"

const (
	// Idempotent place-order fast path: idem:order:place:{external_id} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s"

	// Order status cache: order_status:{order_id} -> status string
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
