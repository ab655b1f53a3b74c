package enrichlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pricedex/pricedex/internal/clock"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker implements Locker in process memory. Used when no redis is
// configured and in tests. Expired entries are reclaimed on acquire, which
// gives the same crash-safety contract as the redis TTL.
type MemoryLocker struct {
	mu    sync.Mutex
	clk   clock.Clock
	locks map[string]memoryEntry
}

func NewMemoryLocker(clk clock.Clock) *MemoryLocker {
	return &MemoryLocker{
		clk:   clk,
		locks: make(map[string]memoryEntry),
	}
}

func (l *MemoryLocker) TryAcquire(ctx context.Context, entityID int64, ttl time.Duration) (*Handle, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lock ttl must be positive")
	}

	key := fmt.Sprintf(lockKeyFormat, entityID)
	now := l.clk.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, held := l.locks[key]; held && now.Before(entry.expiresAt) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.locks[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return &Handle{key: key, token: token, owner: l}, true, nil
}

func (l *MemoryLocker) release(ctx context.Context, key, token string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, held := l.locks[key]; held && entry.token == token {
		delete(l.locks, key)
	}
	return nil
}
