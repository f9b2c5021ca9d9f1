package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"claimguru/api/internal/store"
)

// MemoryStore keeps refresh sessions in process memory. It is the fallback
// for deployments without Redis; restarts sign everyone out, which is
// acceptable for single-instance development setups.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryRefreshEntry
	now     func() time.Time
}

type memoryRefreshEntry struct {
	user      store.User
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryRefreshEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) SaveRefreshSession(_ context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenHash] = memoryRefreshEntry{user: user, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tokenHash]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, tokenHash)
		return store.User{}, fmt.Errorf("token not found or expired")
	}
	return entry.user, nil
}

func (s *MemoryStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenHash)
	return nil
}
