package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage key not found")

// Change is a notification that a key of one client's storage was
// written or removed.
type Change struct {
	Key     string `json:"key"`
	Cleared bool   `json:"cleared"`
}

// Storage is durable keyed storage scoped to a single client (browser).
// Implementations must be safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	// Set writes every entry or none of them.
	Set(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	// Watch streams changes until ctx is done, then closes the channel.
	// Delivery is best effort; slow readers may miss notifications.
	Watch(ctx context.Context) (<-chan Change, error)
}

// Backend hands out per-client storage.
type Backend interface {
	ForClient(clientID string) Storage
	Ping(ctx context.Context) error
	Close() error
}
