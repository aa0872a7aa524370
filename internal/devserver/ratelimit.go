package devserver

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local fixed-window counter used for auth rate
// limiting when the dev server runs without Redis.
type MemoryCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]counterWindow
}

type counterWindow struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{now: time.Now, windows: map[string]counterWindow{}}
}

// IncrWithTTL increments key. The window starts on the first increment and
// is not extended by later ones.
func (m *MemoryCounter) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = counterWindow{expiresAt: now.Add(ttl)}
		m.sweepLocked(now)
	}
	w.count++
	m.windows[key] = w
	return w.count, nil
}

func (m *MemoryCounter) RateLimitKey(scope string) string {
	return "ss:rl:" + scope
}

// Ping always succeeds.
func (m *MemoryCounter) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryCounter) sweepLocked(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.expiresAt) {
			delete(m.windows, k)
		}
	}
}
