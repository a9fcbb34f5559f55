package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wefthq/weft/internal/logging"
	"github.com/wefthq/weft/pkg/ports"
)

// lockEntry holds the mutex and the reference count for one (session, stage)
// pair.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes artifact writes: at most one writer per (session,
// stage) pair at a time. The provenance engine itself adds no locking, so
// any caller that materializes artifacts must route writes through a
// Manager (the facade Engine does). Reference counting garbage collects
// locks for idle pairs.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker // Optional, for multi-instance setups
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across engine instances.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new write-lock manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:  make(map[string]*lockEntry),
		ttl:    30 * time.Second,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func lockKey(sessionID, stageID string) string {
	return sessionID + "/" + stageID
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must Lock entry.mu and call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// WithStageLock executes fn while holding the write lock for the given
// (session, stage) pair.
func (m *Manager) WithStageLock(ctx context.Context, sessionID, stageID string, fn func(context.Context) error) error {
	key := lockKey(sessionID, stageID)

	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"stage_id", stageID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
