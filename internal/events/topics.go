package events

const (
	TopicOrderPlaced   = "shop.order.placed"
	TopicOrderStatus   = "shop.order.status"
	TopicUserLifecycle = "identity.user.lifecycle"
)

// PartitionKey keeps every event of one entity on one partition so ordering
// holds per order / per user.
func PartitionKey(id string) []byte { return []byte(id) }
