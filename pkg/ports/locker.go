package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates artifact writes across multiple engine
// instances sharing one artifact store. The session Manager uses it to
// extend the in-process one-writer-per-stage guarantee to replicas.
type DistributedLocker interface {
	// Lock acquires a distributed lock for the given key, blocking until
	// acquired, the context is canceled, or the TTL expires (implementation
	// specific). The returned UnlockFunc MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
