// Package authpw provides email/password authentication with verification.
package authpw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"claimguru/api/internal/auth"
	"claimguru/api/internal/rbac"
	"claimguru/api/internal/store"
	"claimguru/api/internal/util"
	"golang.org/x/crypto/bcrypt"
)

// Service provides email/password authentication
type Service struct {
	store UserStore
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (store.User, error)
	InsertUser(ctx context.Context, user store.User) error
	InsertOrganization(ctx context.Context, org store.Organization) error
	MarkUserVerified(ctx context.Context, id string) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	InsertPasswordReset(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error)
}

// NewService creates a new auth service
func NewService(userStore UserStore) *Service {
	return &Service{store: userStore}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email            string
	Password         string
	DisplayName      string
	OrganizationName string
	// OrganizationID joins an existing firm instead of founding one.
	OrganizationID string
	Role           string
}

// SignUpResponse contains sign-up result
type SignUpResponse struct {
	UserID              string
	OrganizationID      string
	VerificationToken   string
	RequiresEmailVerify bool
}

// SignUp creates a new user account. With OrganizationName set it also
// founds the firm and makes the user its admin; with OrganizationID set it
// joins the existing firm.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		return nil, errors.New("email, password, and display name are required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if req.OrganizationName == "" && req.OrganizationID == "" {
		return nil, errors.New("organization name or id is required")
	}

	// Check if email already exists
	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verificationToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	organizationID := req.OrganizationID
	role := string(rbac.Normalize(req.Role))
	if req.OrganizationName != "" {
		organizationID = util.NewID("org")
		if err := s.store.InsertOrganization(ctx, store.Organization{
			ID:   organizationID,
			Name: req.OrganizationName,
		}); err != nil {
			return nil, fmt.Errorf("create organization: %w", err)
		}
		// The founding user administers the firm.
		role = string(rbac.RoleAdmin)
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	user := store.User{
		ID:                    util.NewID("usr"),
		OrganizationID:        organizationID,
		DisplayName:           req.DisplayName,
		Email:                 req.Email,
		PasswordHash:          string(hash),
		Role:                  role,
		IsEmailVerified:       false,
		VerificationToken:     verificationToken,
		VerificationExpiresAt: &expiresAt,
	}

	if err := s.store.InsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &SignUpResponse{
		UserID:              user.ID,
		OrganizationID:      organizationID,
		VerificationToken:   verificationToken,
		RequiresEmailVerify: true,
	}, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignInResponse contains sign-in result
type SignInResponse struct {
	User           store.User
	RequiresVerify bool
}

// SignIn authenticates a user
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if user.DeactivatedAt != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	if !user.IsEmailVerified {
		return &SignInResponse{
			User:           user,
			RequiresVerify: true,
		}, nil
	}

	return &SignInResponse{
		User:           user,
		RequiresVerify: false,
	}, nil
}

// VerifyEmail verifies an email address using a token
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("verification token required")
	}

	user, err := s.store.GetUserByVerificationToken(ctx, token)
	if err != nil {
		return errors.New("invalid or expired verification token")
	}
	if user.VerificationExpiresAt != nil && time.Now().After(*user.VerificationExpiresAt) {
		return errors.New("invalid or expired verification token")
	}

	if err := s.store.MarkUserVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return nil
}

// RequestPasswordReset creates a password reset token. The raw token is
// returned for delivery by email; only its hash is stored.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		// Don't reveal if email exists
		return "", nil
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(1 * time.Hour)
	if err := s.store.InsertPasswordReset(ctx, util.NewID("pwr"), user.ID, auth.HashToken(token), expiresAt); err != nil {
		return "", err
	}

	return token, nil
}

// ResetPasswordRequest contains password reset parameters
type ResetPasswordRequest struct {
	Token       string
	NewPassword string
}

// ResetPassword resets a user's password using a reset token
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.Token == "" || req.NewPassword == "" {
		return errors.New("token and new password are required")
	}
	if len(req.NewPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	userID, err := s.store.ConsumePasswordReset(ctx, auth.HashToken(req.Token))
	if err != nil {
		return errors.New("invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// generateToken creates a secure random token
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
