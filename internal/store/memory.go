package store

import (
	"context"
	"sort"
	"sync"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// InMemoryStore keeps completion records in process memory. It backs tests and
// DSN-less deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.CompletionRecord // keyed by user ID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.CompletionRecord)}
}

func (s *InMemoryStore) RecordCompletion(_ context.Context, rec models.CompletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.UserID]; ok {
		return &DuplicateError{UserID: rec.UserID, ExistingID: existing.ID}
	}
	s.records[rec.UserID] = cloneRecord(rec)
	return nil
}

func (s *InMemoryStore) GetCompletion(_ context.Context, userID string) (*models.CompletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *InMemoryStore) ListCompletions(_ context.Context) ([]models.CompletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CompletionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func cloneRecord(rec models.CompletionRecord) models.CompletionRecord {
	out := rec
	out.Answers = make(map[string]string, len(rec.Answers))
	for k, v := range rec.Answers {
		out.Answers[k] = v
	}
	return out
}

// DuplicateError reports an attempt to record a second completion for a user.
type DuplicateError struct {
	UserID     string
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return "completion already recorded for user " + e.UserID
}
