package enum

// ── Order item lifecycle (CHECK constrained in DB) ──
//
// PENDING → ACCEPTED → SHIPPED → DELIVERED
// PENDING|ACCEPTED → REJECTED
// DELIVERED and REJECTED are terminal.

const (
	ItemStatusPending   = "PENDING"
	ItemStatusAccepted  = "ACCEPTED"
	ItemStatusRejected  = "REJECTED"
	ItemStatusShipped   = "SHIPPED"
	ItemStatusDelivered = "DELIVERED"
)

// ── Account roles (CHECK constrained in DB) ──

const (
	RoleRetailer   = "RETAILER"
	RoleWholesaler = "WHOLESALER"
)

// ── WebSocket event types ──

const (
	EventOrderPlaced      = "order_placed"
	EventOrderItemUpdated = "order_item_updated"
)
