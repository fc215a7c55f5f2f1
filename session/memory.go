package session

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and single-node dev runs.
// The mutex spans the whole read-verify-write sequence of Rotate, giving the
// same linearizability the Redis script provides.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get implements Store. Expiry is observed lazily: a lapsed record is removed
// on the read that discovers it.
func (s *MemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Expired(time.Now()) {
		delete(s.records, userID)
		return nil, ErrNotFound
	}

	cp := *rec
	return &cp, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if ttl > 0 {
		cp.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	s.records[cp.UserID] = &cp
	return nil
}

// Rotate implements Store.
func (s *MemoryStore) Rotate(
	_ context.Context,
	userID string,
	provided, next [HashSize]byte,
	ttl time.Duration,
) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	if rec.Expired(now) {
		delete(s.records, userID)
		return nil, ErrNotFound
	}

	if subtle.ConstantTimeCompare(rec.RefreshHash[:], provided[:]) != 1 {
		return nil, ErrHashMismatch
	}

	replacement := &Record{
		UserID:      userID,
		RefreshHash: next,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
	}
	s.records[userID] = replacement

	cp := *replacement
	return &cp, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if ok && rec.Expired(time.Now()) {
		delete(s.records, userID)
		return false, nil
	}
	delete(s.records, userID)
	return ok, nil
}
