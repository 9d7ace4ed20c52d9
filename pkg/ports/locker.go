package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates command execution across engine replicas.
// Locking is an optional optimization to reduce optimistic-lock conflicts on
// hot instances; the version check in ExecutionStore.Commit stays the source
// of truth either way.
type DistributedLocker interface {
	// Lock acquires a lock for the key (a case instance id). It blocks until
	// acquired, the context is canceled, or the TTL expires. The returned
	// UnlockFunc MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
