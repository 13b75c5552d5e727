// Package session provides storage backends for conversation sessions.
//
// This file implements the in-process store for single-instance deployments.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// DefaultJanitorInterval is how often expired sessions are swept.
const DefaultJanitorInterval = time.Minute

type memoryEntry struct {
	session   *models.Session
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process session table with TTL expiry.
// Expired entries are dropped lazily on Get and swept by a background janitor.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	done     chan struct{}
	closeOne sync.Once
}

// NewMemoryStore creates an in-memory session store and starts its janitor.
func NewMemoryStore(opts ...Option) *MemoryStore {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = DefaultJanitorInterval
	}
	s := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      cfg.TTL,
		done:     make(chan struct{}),
	}
	go s.janitor(cfg.JanitorInterval)
	slog.Debug("MemoryStore created", "ttl", cfg.TTL, "janitor_interval", cfg.JanitorInterval)
	return s
}

// Get returns the session for id, or nil when absent or expired.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, models.ErrEmptyUserID
	}
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		// Lazy expiry; the janitor would catch it eventually.
		s.mu.Lock()
		if cur, still := s.sessions[id]; still && time.Now().After(cur.expiresAt) {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		slog.Debug("MemoryStore Get found expired session", "id", id)
		return nil, nil
	}
	return entry.session.Clone(), nil
}

// Set stores the session under id, refreshing its TTL. Last write wins.
func (s *MemoryStore) Set(ctx context.Context, id string, sess *models.Session) error {
	if id == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	s.sessions[id] = memoryEntry{session: sess.Clone(), expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	slog.Debug("MemoryStore Set succeeded", "id", id, "stage", sess.Stage)
	return nil
}

// Delete removes the session for id. Deleting an absent key is a no-op.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	slog.Debug("MemoryStore Delete succeeded", "id", id)
	return nil
}

// Len returns the number of live entries, including not-yet-swept expired ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() error {
	s.closeOne.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			slog.Debug("MemoryStore janitor stopped")
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	removed := 0
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		slog.Debug("MemoryStore janitor reclaimed idle sessions", "count", removed)
	}
}
