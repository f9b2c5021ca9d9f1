package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WizardStateStore holds live field-registry snapshots for in-flight wizard
// sessions, keyed by (organization, user, wizard type), so every API
// instance sees the same registry. Entries carry a sliding TTL: each read
// or write pushes expiry forward.
type WizardStateStore interface {
	SaveState(ctx context.Context, organizationID, userID, wizardType string, blob []byte) error
	LoadState(ctx context.Context, organizationID, userID, wizardType string) ([]byte, bool, error)
	DeleteState(ctx context.Context, organizationID, userID, wizardType string) error
}

// RedisWizardState is the Redis-backed implementation.
type RedisWizardState struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisWizardState(client *redis.Client, ttl time.Duration) *RedisWizardState {
	return &RedisWizardState{client: client, ttl: ttl}
}

func wizardStateKey(organizationID, userID, wizardType string) string {
	return fmt.Sprintf("wizardstate:%s:%s:%s", organizationID, userID, wizardType)
}

func (s *RedisWizardState) SaveState(ctx context.Context, organizationID, userID, wizardType string, blob []byte) error {
	key := wizardStateKey(organizationID, userID, wizardType)
	if err := s.client.Set(ctx, key, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("save wizard state: %w", err)
	}
	return nil
}

func (s *RedisWizardState) LoadState(ctx context.Context, organizationID, userID, wizardType string) ([]byte, bool, error) {
	key := wizardStateKey(organizationID, userID, wizardType)
	blob, err := s.client.GetEx(ctx, key, s.ttl).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load wizard state: %w", err)
	}
	return blob, true, nil
}

func (s *RedisWizardState) DeleteState(ctx context.Context, organizationID, userID, wizardType string) error {
	key := wizardStateKey(organizationID, userID, wizardType)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete wizard state: %w", err)
	}
	return nil
}

// MemoryWizardState is the fallback used when Redis is not configured. It
// gives single-instance deployments the same semantics, TTL included.
type MemoryWizardState struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryStateEntry
	now     func() time.Time
}

type memoryStateEntry struct {
	blob      []byte
	expiresAt time.Time
}

func NewMemoryWizardState(ttl time.Duration) *MemoryWizardState {
	return &MemoryWizardState{
		ttl:     ttl,
		entries: make(map[string]memoryStateEntry),
		now:     time.Now,
	}
}

func (s *MemoryWizardState) SaveState(_ context.Context, organizationID, userID, wizardType string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(blob))
	copy(copied, blob)
	s.entries[wizardStateKey(organizationID, userID, wizardType)] = memoryStateEntry{
		blob:      copied,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryWizardState) LoadState(_ context.Context, organizationID, userID, wizardType string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := wizardStateKey(organizationID, userID, wizardType)
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.entries[key] = entry
	return entry.blob, true, nil
}

func (s *MemoryWizardState) DeleteState(_ context.Context, organizationID, userID, wizardType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, wizardStateKey(organizationID, userID, wizardType))
	return nil
}
