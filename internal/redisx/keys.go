package redisx

import "time"

const (
	// Per-item mutation guard: lock:item:{order_item_id} -> "1".
	// Held for the duration of a status update so a second request on the
	// same item id is refused instead of racing the first.
	KeyItemLock = "lock:item:%s"
)

var (
	TTLItemLock = 10 * time.Second
)
