package cache

import (
	"context"
	"sync"
	"time"
)

// UnreadCounter caches per-user unread-notification counts. Implementations
// must be safe for concurrent use: the cache is shared mutable state across
// all requests.
type UnreadCounter interface {
	// Get returns the cached count for the user, or ok=false on a miss
	// (absent or expired entry).
	Get(ctx context.Context, userID int64) (count int64, ok bool)
	// Put stores the count with the cache's TTL.
	Put(ctx context.Context, userID int64, count int64)
	// Invalidate unconditionally removes any entry for the user. Every
	// write that changes a user's unread count must call it.
	Invalidate(ctx context.Context, userID int64)
}

type memoryEntry struct {
	count    int64
	cachedAt time.Time
}

// MemoryCounter is the default process-local implementation: a mutex-guarded
// map with lazy TTL expiry. Entries are only dropped on read or invalidation,
// never by a background sweep.
type MemoryCounter struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memoryEntry
	now     func() time.Time
}

// NewMemoryCounter builds a counter with the given entry lifetime.
func NewMemoryCounter(ttl time.Duration) *MemoryCounter {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryCounter{
		ttl:     ttl,
		entries: make(map[int64]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCounter) Get(_ context.Context, userID int64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[userID]
	if !ok {
		return 0, false
	}
	if m.now().Sub(entry.cachedAt) >= m.ttl {
		delete(m.entries, userID)
		return 0, false
	}
	return entry.count, true
}

func (m *MemoryCounter) Put(_ context.Context, userID int64, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = memoryEntry{count: count, cachedAt: m.now()}
}

func (m *MemoryCounter) Invalidate(_ context.Context, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
}
