package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Backend when the key holds nothing.
	ErrNotFound = errors.New("cache: key not found")
	// ErrMalformed marks a stored value that does not decode.
	ErrMalformed = errors.New("cache: malformed entry")
)

// Backend is a raw key-value store with sequence-guarded writes.
type Backend interface {
	// Load returns the stored value or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// StoreIfNewer writes value unless the key already holds a higher
	// sequence. It reports whether the write happened.
	StoreIfNewer(ctx context.Context, key string, seq uint64, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// Flush deletes every key with the given prefix.
	Flush(ctx context.Context, prefix string) error
}
