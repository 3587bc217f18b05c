package cache

import (
	"context"
	"sync"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/javila-dev/rojoz/internal/infrastructure/config"
	"github.com/google/uuid"
)

// InMemorySaleLocker implements SaleLocker with per-sale mutexes. Suitable
// for single-instance deployments and testing; it cannot serialize
// settlement operations across processes.
type InMemorySaleLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
	cfg   config.SaleLockConfig
}

// NewInMemorySaleLocker creates a new in-memory sale locker
func NewInMemorySaleLocker(cfg config.SaleLockConfig) *InMemorySaleLocker {
	return &InMemorySaleLocker{
		locks: make(map[uuid.UUID]*sync.Mutex),
		cfg:   cfg,
	}
}

// WithLock runs fn while holding the exclusive settlement lock for the sale
func (l *InMemorySaleLocker) WithLock(ctx context.Context, saleID uuid.UUID, fn func(ctx context.Context) error) error {
	lock := l.lockFor(saleID)

	acquired := false
	for attempt := 0; attempt <= l.cfg.RetryAttempts; attempt++ {
		if lock.TryLock() {
			acquired = true
			break
		}
		if attempt == l.cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.RetryDelay * time.Duration(attempt+1)):
		}
	}
	if !acquired {
		return shared.ErrContention
	}

	defer lock.Unlock()

	return fn(ctx)
}

// lockFor returns the mutex for a sale, creating it on first use. Mutexes
// are never removed; the map is bounded by the number of active sales.
func (l *InMemorySaleLocker) lockFor(saleID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[saleID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[saleID] = lock
	}
	return lock
}

// Ensure InMemorySaleLocker implements SaleLocker
var _ shared.SaleLocker = (*InMemorySaleLocker)(nil)
