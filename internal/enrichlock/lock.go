package enrichlock

import (
	"context"
	"sync"
	"time"
)

// Locker provides per-entity, TTL-bounded mutual exclusion for enrichment
// runs. Contention is not an error: TryAcquire returns (nil, false, nil)
// when another holder exists. The TTL frees the lock if a holder crashes
// without releasing.
type Locker interface {
	TryAcquire(ctx context.Context, entityID int64, ttl time.Duration) (*Handle, bool, error)
}

type releaser interface {
	release(ctx context.Context, key, token string) error
}

// Handle represents a held lock. Release is safe to call more than once;
// only the first call takes effect.
type Handle struct {
	key   string
	token string
	owner releaser
	once  sync.Once
}

func (h *Handle) Release(ctx context.Context) error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		err = h.owner.release(ctx, h.key, h.token)
	})
	return err
}
