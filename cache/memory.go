package cache

import (
	"context"
	"sync"
	"time"

	"github.com/room4-2/FrontDesk/domain"
)

type memoryEntry struct {
	course  domain.Course
	expires time.Time
}

// MemoryBackend keeps courses in a map. Expired entries are dropped on read.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry), now: time.Now}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (domain.Course, bool, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok {
		return domain.Course{}, false, nil
	}
	if !b.now().Before(e.expires) {
		b.mu.Lock()
		if cur, ok := b.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(b.entries, key)
		}
		b.mu.Unlock()
		return domain.Course{}, false, nil
	}
	return e.course, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, c domain.Course, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{course: c, expires: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Purge(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]memoryEntry)
	return nil
}
