package redisx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ItemLocker serializes status mutations on order items. One lock per item
// id; the TTL keeps a crashed holder from wedging the item forever.
type ItemLocker struct {
	rdb *redis.Client
}

func NewItemLocker(rdb *redis.Client) *ItemLocker {
	return &ItemLocker{rdb: rdb}
}

func (l *ItemLocker) AcquireItemLock(ctx context.Context, itemID uuid.UUID) (bool, error) {
	return AcquireLock(ctx, l.rdb, fmt.Sprintf(KeyItemLock, itemID), TTLItemLock)
}

func (l *ItemLocker) ReleaseItemLock(ctx context.Context, itemID uuid.UUID) error {
	return ReleaseLock(ctx, l.rdb, fmt.Sprintf(KeyItemLock, itemID))
}
