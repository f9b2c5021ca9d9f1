package auth

import (
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		Sub:  "usr_1",
		Name: "Dana",
		Org:  "org_1",
		Role: "adjuster",
		JTI:  "jti_1",
		Exp:  time.Now().Add(time.Hour).Unix(),
	}

	token, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Org != claims.Org || parsed.Role != claims.Role {
		t.Errorf("claims mismatch: got %+v", parsed)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := IssueToken([]byte("secret-a"), Claims{
		Sub: "usr_1", Name: "Dana", Org: "org_1", JTI: "jti_1",
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	if _, err := ParseToken([]byte("secret-b"), token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, _ := IssueToken([]byte("secret"), Claims{
		Sub: "usr_1", Name: "Dana", Org: "org_1", JTI: "jti_1",
		Exp: time.Now().Add(-time.Minute).Unix(),
	})
	if _, err := ParseToken([]byte("secret"), token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseToken_MissingOrg(t *testing.T) {
	token, _ := IssueToken([]byte("secret"), Claims{
		Sub: "usr_1", Name: "Dana", JTI: "jti_1",
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	if _, err := ParseToken([]byte("secret"), token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for missing org, got %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := ParseToken([]byte("secret"), "not-a-token"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
