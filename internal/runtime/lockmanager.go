package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/caseflow/pkg/ports"
)

const distributedLockTTL = 30 * time.Second

// lockEntry holds the mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockManager serializes commands per case instance within this process,
// with reference counting to garbage collect idle entries. When a
// DistributedLocker is configured it also coordinates across replicas.
// This only narrows the race window on hot instances; the store's version
// check stays the source of truth.
type lockManager struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	locker  ports.DistributedLocker
}

func newLockManager() *lockManager {
	return &lockManager{
		entries: make(map[string]*lockEntry),
	}
}

// acquire takes the per-instance lock (and the distributed one if present).
// The returned func releases everything and must always be called.
func (m *lockManager) acquire(ctx context.Context, instanceID string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[instanceID]
	if !ok {
		entry = &lockEntry{}
		m.entries[instanceID] = entry
	}
	entry.refs++
	m.mu.Unlock()

	entry.mu.Lock()

	var unlockDistributed ports.UnlockFunc
	if m.locker != nil {
		var err error
		unlockDistributed, err = m.locker.Lock(ctx, instanceID, distributedLockTTL)
		if err != nil {
			entry.mu.Unlock()
			m.release(instanceID)
			return nil, err
		}
	}

	return func() {
		if unlockDistributed != nil {
			// Release errors are not actionable by the command; the TTL
			// reclaims the lock either way.
			_ = unlockDistributed(context.WithoutCancel(ctx))
		}
		entry.mu.Unlock()
		m.release(instanceID)
	}, nil
}

func (m *lockManager) release(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[instanceID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.entries, instanceID)
	}
}
