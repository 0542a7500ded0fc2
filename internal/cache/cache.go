// Package cache defines the byte cache used for backend lookups that rarely
// change, such as store details and store photo URLs.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get reports ok=false on a miss; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
