package authpw

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"claimguru/api/internal/auth"
	"claimguru/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users  map[string]store.User // by id
	orgs   map[string]store.Organization
	resets map[string]struct {
		userID    string
		expiresAt time.Time
	}
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[string]store.User),
		orgs:  make(map[string]store.Organization),
		resets: make(map[string]struct {
			userID    string
			expiresAt time.Time
		}),
	}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	u, ok := f.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByVerificationToken(_ context.Context, token string) (store.User, error) {
	for _, u := range f.users {
		if u.VerificationToken == token && token != "" {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) InsertUser(_ context.Context, user store.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) InsertOrganization(_ context.Context, org store.Organization) error {
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeUserStore) MarkUserVerified(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsEmailVerified = true
	u.VerificationToken = ""
	u.VerificationExpiresAt = nil
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) InsertPasswordReset(_ context.Context, _, userID, tokenHash string, expiresAt time.Time) error {
	f.resets[tokenHash] = struct {
		userID    string
		expiresAt time.Time
	}{userID, expiresAt}
	return nil
}

func (f *fakeUserStore) ConsumePasswordReset(_ context.Context, tokenHash string) (string, error) {
	reset, ok := f.resets[tokenHash]
	if !ok || time.Now().After(reset.expiresAt) {
		return "", sql.ErrNoRows
	}
	delete(f.resets, tokenHash)
	return reset.userID, nil
}

func signUpFoundingUser(t *testing.T, s *Service) *SignUpResponse {
	t.Helper()
	resp, err := s.SignUp(context.Background(), SignUpRequest{
		Email:            "dana@example.com",
		Password:         "correct-horse",
		DisplayName:      "Dana Reyes",
		OrganizationName: "Reyes Adjusting",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	return resp
}

func TestSignUp_FoundsOrganization(t *testing.T) {
	f := newFakeUserStore()
	s := NewService(f)

	resp := signUpFoundingUser(t, s)
	if resp.OrganizationID == "" {
		t.Fatal("no organization created")
	}
	if !resp.RequiresEmailVerify || resp.VerificationToken == "" {
		t.Errorf("resp = %+v", resp)
	}

	user := f.users[resp.UserID]
	if user.OrganizationID != resp.OrganizationID {
		t.Errorf("user org = %s, want %s", user.OrganizationID, resp.OrganizationID)
	}
	if user.Role != "admin" {
		t.Errorf("founding user role = %s, want admin", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")); err != nil {
		t.Error("stored hash does not match password")
	}
	if f.orgs[resp.OrganizationID].Name != "Reyes Adjusting" {
		t.Errorf("org = %+v", f.orgs[resp.OrganizationID])
	}
}

func TestSignUp_JoinsExistingOrganization(t *testing.T) {
	f := newFakeUserStore()
	s := NewService(f)
	founder := signUpFoundingUser(t, s)

	resp, err := s.SignUp(context.Background(), SignUpRequest{
		Email:          "sam@example.com",
		Password:       "battery-staple",
		DisplayName:    "Sam Ortiz",
		OrganizationID: founder.OrganizationID,
		Role:           "adjuster",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	user := f.users[resp.UserID]
	if user.OrganizationID != founder.OrganizationID || user.Role != "adjuster" {
		t.Errorf("user = %+v", user)
	}
}

func TestSignUp_Validation(t *testing.T) {
	s := NewService(newFakeUserStore())
	cases := []SignUpRequest{
		{Password: "longenough", DisplayName: "X", OrganizationName: "Y"},
		{Email: "a@b.c", Password: "short", DisplayName: "X", OrganizationName: "Y"},
		{Email: "a@b.c", Password: "longenough", OrganizationName: "Y"},
		{Email: "a@b.c", Password: "longenough", DisplayName: "X"},
	}
	for i, req := range cases {
		if _, err := s.SignUp(context.Background(), req); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFakeUserStore()
	s := NewService(f)
	signUpFoundingUser(t, s)

	_, err := s.SignUp(context.Background(), SignUpRequest{
		Email:            "dana@example.com",
		Password:         "another-pass",
		DisplayName:      "Impostor",
		OrganizationName: "Other Firm",
	})
	if err == nil {
		t.Error("expected duplicate-email error")
	}
}

func TestSignInFlow(t *testing.T) {
	f := newFakeUserStore()
	s := NewService(f)
	resp := signUpFoundingUser(t, s)

	// Unverified sign-in succeeds but flags verification.
	signIn, err := s.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !signIn.RequiresVerify {
		t.Error("unverified account should flag RequiresVerify")
	}

	if err := s.VerifyEmail(context.Background(), resp.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	signIn, err = s.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("SignIn after verify: %v", err)
	}
	if signIn.RequiresVerify {
		t.Error("verified account still flags RequiresVerify")
	}

	if _, err := s.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "wrong"}); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := s.SignIn(context.Background(), SignInRequest{Email: "nobody@example.com", Password: "x"}); err == nil {
		t.Error("expected error for unknown email")
	}
}

func TestVerifyEmail_ExpiredToken(t *testing.T) {
	f := newFakeUserStore()
	s := NewService(f)
	resp := signUpFoundingUser(t, s)

	user := f.users[resp.UserID]
	past := time.Now().Add(-time.Hour)
	user.VerificationExpiresAt = &past
	f.users[resp.UserID] = user

	if err := s.VerifyEmail(context.Background(), resp.VerificationToken); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFakeUserStore()
	s := NewService(f)
	resp := signUpFoundingUser(t, s)
	_ = s.VerifyEmail(context.Background(), resp.VerificationToken)

	token, err := s.RequestPasswordReset(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if token == "" {
		t.Fatal("no reset token returned")
	}
	if _, ok := f.resets[auth.HashToken(token)]; !ok {
		t.Error("stored reset is not hashed")
	}

	if err := s.ResetPassword(context.Background(), ResetPasswordRequest{Token: token, NewPassword: "new-password-1"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := s.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "new-password-1"}); err != nil {
		t.Errorf("sign-in with new password: %v", err)
	}
	if _, err := s.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "correct-horse"}); err == nil {
		t.Error("old password still accepted")
	}

	// Tokens are single-use.
	if err := s.ResetPassword(context.Background(), ResetPasswordRequest{Token: token, NewPassword: "another-pass-2"}); err == nil {
		t.Error("reset token reused")
	}
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	s := NewService(newFakeUserStore())
	token, err := s.RequestPasswordReset(context.Background(), "ghost@example.com")
	if err != nil || token != "" {
		t.Errorf("unknown email should be silent, got %q, %v", token, err)
	}
}
