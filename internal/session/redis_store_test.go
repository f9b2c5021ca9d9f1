package session

import (
	"context"
	"testing"
	"time"

	"claimguru/api/internal/store"
	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	sessionStore, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return sessionStore, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	sessionStore, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer sessionStore.Close()

	ctx := context.Background()
	if err := sessionStore.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStore_BadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url"); err == nil {
		t.Error("expected error for malformed URL")
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	tokenHash := "test-token-hash"
	user := store.User{
		ID:             "usr_123",
		OrganizationID: "org_9",
		DisplayName:    "Dana Reyes",
		Role:           "adjuster",
	}
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := sessionStore.SaveRefreshSession(ctx, tokenHash, user, expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	found, err := sessionStore.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}

	if found.ID != user.ID {
		t.Errorf("expected user ID %s, got %s", user.ID, found.ID)
	}
	if found.OrganizationID != user.OrganizationID {
		t.Errorf("expected org %s, got %s", user.OrganizationID, found.OrganizationID)
	}
	if found.Role != "adjuster" {
		t.Errorf("expected role adjuster, got %s", found.Role)
	}
}

func TestLookupRefreshSession_DefaultsRole(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	user := store.User{ID: "usr_1", OrganizationID: "org_1"}
	if err := sessionStore.SaveRefreshSession(ctx, "hash", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	found, err := sessionStore.LookupRefreshSession(ctx, "hash")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if found.Role != "viewer" {
		t.Errorf("expected default role viewer, got %s", found.Role)
	}
}

func TestLookupRefreshSession_Missing(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	if _, err := sessionStore.LookupRefreshSession(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	user := store.User{ID: "usr_1", OrganizationID: "org_1"}
	if err := sessionStore.SaveRefreshSession(ctx, "hash", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := sessionStore.RevokeRefreshSession(ctx, "hash"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := sessionStore.LookupRefreshSession(ctx, "hash"); err == nil {
		t.Error("expected error after revocation")
	}
}

func TestRefreshSession_Expiry(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	user := store.User{ID: "usr_1", OrganizationID: "org_1"}
	if err := sessionStore.SaveRefreshSession(ctx, "hash", user, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(2 * time.Minute)

	if _, err := sessionStore.LookupRefreshSession(ctx, "hash"); err == nil {
		t.Error("expected error after TTL expiry")
	}
}
