package cache

import (
	"context"
	"time"
)

// Store is the backend an entry lives in. Implementations must replace an
// entry as a whole on Set and must drop every key carrying any of the given
// tags on InvalidateTags.
type Store interface {
	// Get returns the stored value for key. ok is false on a miss or expiry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key with the given tags and time to live.
	Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error

	// InvalidateTags removes every entry carrying at least one of tags.
	InvalidateTags(ctx context.Context, tags ...string) error
}
