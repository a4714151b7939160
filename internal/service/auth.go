// Package service implements the application's business logic on top of the
// store, search index and metadata clients.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nistake0/bookmemo-server/internal/auth"
	"github.com/nistake0/bookmemo-server/internal/domain"
	domainerrors "github.com/nistake0/bookmemo-server/internal/errors"
	"github.com/nistake0/bookmemo-server/internal/id"
	"github.com/nistake0/bookmemo-server/internal/store"
	"github.com/nistake0/bookmemo-server/internal/validation"
)

// validate is the shared request validator for all services.
var validate = validation.New()

// AuthService handles setup, login and token lifecycle.
type AuthService struct {
	store    *store.Store
	tokens   *auth.TokenService
	sessions *SessionService
	logger   *slog.Logger
}

// NewAuthService creates an authentication service.
func NewAuthService(
	store *store.Store,
	tokens *auth.TokenService,
	sessions *SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// SetupRequest creates the first (root) user on a fresh instance.
type SetupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
}

// LoginRequest authenticates an existing user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by setup, login and refresh.
type AuthResponse struct {
	SessionResponse
	User *UserResponse `json:"user"`
}

// UserResponse is the API view of a user, with the password hash filtered out.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsRoot      bool      `json:"is_root"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at,omitempty"`
}

func newUserResponse(user *domain.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsRoot:      user.IsRoot,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// NeedsSetup reports whether the instance has no users yet.
func (s *AuthService) NeedsSetup(ctx context.Context) (bool, error) {
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count == 0, nil
}

// Setup creates the root user and logs them in. Only valid on a fresh
// instance; once any user exists the endpoint is closed.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest, client auth.ClientInfo, ipAddress string) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	needsSetup, err := s.NeedsSetup(ctx)
	if err != nil {
		return nil, err
	}
	if !needsSetup {
		return nil, domainerrors.AlreadyConfigured("server is already set up")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		IsRoot:       true,
		LastLoginAt:  time.Now(),
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("Root user created", "user_id", user.ID, "email", user.Email)

	sessionResp, err := s.sessions.CreateSession(ctx, user, client, ipAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		SessionResponse: *sessionResp,
		User:            newUserResponse(user),
	}, nil
}

// Login verifies credentials and opens a new session. Unknown email and wrong
// password return the same error so the endpoint does not reveal which emails
// are registered.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client auth.ClientInfo, ipAddress string) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Login still succeeds; the timestamp is informational.
		s.logger.Warn("Failed to update last login time", "user_id", user.ID, "error", err)
	}

	sessionResp, err := s.sessions.CreateSession(ctx, user, client, ipAddress)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", user.ID, "session_id", sessionResp.SessionID)

	return &AuthResponse{
		SessionResponse: *sessionResp,
		User:            newUserResponse(user),
	}, nil
}

// RefreshTokens rotates a session's tokens using its refresh token.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string, client auth.ClientInfo, ipAddress string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domainerrors.Validation("refresh token is required")
	}

	sessionResp, user, err := s.sessions.RefreshSession(ctx, refreshToken, client, ipAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		SessionResponse: *sessionResp,
		User:            newUserResponse(user),
	}, nil
}

// Logout ends a single session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteSession(ctx, sessionID)
}

// LogoutAll ends every session the user has open.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.store.DeleteAllUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	s.logger.Info("All sessions ended", "user_id", userID)
	return nil
}

// CurrentUser returns the profile of the given user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domainerrors.NotFound("user not found").WithCause(err)
	}
	return newUserResponse(user), nil
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *AuthService) VerifyAccessToken(tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired access token").WithCause(err)
	}
	return claims, nil
}

// ChangePasswordRequest updates the caller's password and invalidates all
// other sessions.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=1024"`
}

// ChangePassword verifies the current password, stores a new hash and revokes
// every other session so stolen refresh tokens stop working.
func (s *AuthService) ChangePassword(ctx context.Context, userID, keepSessionID string, req ChangePasswordRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domainerrors.NotFound("user not found").WithCause(err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil || !valid {
		return domainerrors.InvalidCredentials("current password is incorrect")
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = newHash
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	sessions, err := s.sessions.ListUserSessions(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to list sessions after password change", "user_id", userID, "error", err)
		return nil
	}
	for _, sess := range sessions {
		if sess.ID == keepSessionID {
			continue
		}
		if err := s.sessions.DeleteSession(ctx, sess.ID); err != nil {
			s.logger.Warn("Failed to revoke session", "session_id", sess.ID, "error", err)
		}
	}

	s.logger.Info("Password changed", "user_id", userID)
	return nil
}
