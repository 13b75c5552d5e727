// Package session provides storage backends for conversation sessions.
//
// Sessions are keyed by canonical user identifier (phone number) and expire
// after an idle TTL. Two interchangeable implementations exist: an in-process
// map for single-instance deployments and a Redis-backed store for
// multi-instance deployments. Selection is a deployment-time configuration.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// DefaultTTL is the default idle timeout after which sessions are reclaimed.
const DefaultTTL = 10 * time.Minute

// Store defines how sessions are stored and retrieved.
// Get returns nil (without error) for unknown or expired keys. Set always
// refreshes the TTL; concurrent sets for the same key are last-write-wins.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Set(ctx context.Context, id string, sess *models.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Opts holds configuration options shared by the session store backends.
type Opts struct {
	TTL             time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JanitorInterval time.Duration
}

// Option defines a configuration option for a session store.
type Option func(*Opts)

// WithTTL sets the idle timeout for stored sessions.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// WithRedisAddr sets the Redis address for the distributed store.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) { o.RedisAddr = addr }
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) Option {
	return func(o *Opts) { o.RedisPassword = password }
}

// WithRedisDB selects the Redis logical database.
func WithRedisDB(db int) Option {
	return func(o *Opts) { o.RedisDB = db }
}

// WithJanitorInterval sets how often the in-memory store sweeps expired entries.
func WithJanitorInterval(interval time.Duration) Option {
	return func(o *Opts) { o.JanitorInterval = interval }
}

// KeyedLock serializes work per user identifier so that a session mutation is
// never observably split across two concurrent webhook deliveries.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLock creates an empty per-key lock table.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*lockEntry)}
}

// Lock acquires the lock for id and returns the corresponding unlock function.
// Entries are reference counted and removed once the last holder releases.
func (k *KeyedLock) Lock(id string) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
