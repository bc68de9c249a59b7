// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and render pages; services enforce the rules; the
// repositories do the storage. Services receive repository interfaces, not
// concrete store types, so the tests in this package run against in-memory
// mocks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/model"
	"github.com/dmoren/ludoteca/internal/repository"
)

// IdentityService owns everything about who the caller is: lazy user
// creation, session token issuing, and the local fallback login.
type IdentityService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	localUser string // fallback account name; "" disables the fallback login
	localHash string // bcrypt hash for the fallback account
	logger    *slog.Logger
}

// NewIdentityService creates an IdentityService. localUser/localHash may be
// empty, which disables the fallback login entirely.
func NewIdentityService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	localUser, localHash string,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		localUser: localUser,
		localHash: localHash,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// EnsureUser returns the User for the given identity, creating it on first
// sight. It is idempotent per provider ID and safe to call from any entry
// point: this is the single place where lazy user creation happens, so no
// handler can ever run against a missing User row.
//
// Two concurrent first logins race at the store's UNIQUE constraint; the
// loser gets a conflict and simply looks the winner's row up.
func (s *IdentityService) EnsureUser(ctx context.Context, ident *auth.Identity) (*model.User, error) {
	user, err := s.users.GetByProviderID(ctx, ident.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/identity: looking up user: %w", err)
	}

	user = &model.User{
		ProviderID: ident.ProviderID,
		Name:       displayName(ident.Nickname),
	}
	err = s.users.CreateUser(ctx, user)
	if err == nil {
		s.logger.Info("user created",
			slog.Int64("userID", user.ID),
			slog.String("name", user.Name),
		)
		return user, nil
	}
	if errors.Is(err, apperror.ErrConflict) {
		// Lost the creation race: the row exists now.
		return s.users.GetByProviderID(ctx, ident.ProviderID)
	}

	return nil, fmt.Errorf("service/identity: creating user: %w", err)
}

// Login ensures the user exists and issues a session token for them.
// Called by the OAuth callback handler after the code exchange.
func (s *IdentityService) Login(ctx context.Context, ident *auth.Identity) (*AuthResult, error) {
	if ident == nil {
		return nil, fmt.Errorf("service/identity: identity must not be nil")
	}

	user, err := s.EnsureUser(ctx, ident)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.Int64("userID", user.ID),
		slog.String("name", user.Name),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// LocalLoginEnabled reports whether the fallback form login is configured.
func (s *IdentityService) LocalLoginEnabled() bool {
	return s.localUser != "" && s.localHash != ""
}

// LoginLocal authenticates the configured fallback account.
//
// A wrong username and a wrong password produce the same error, so the login
// form can't be used to probe which account name is configured.
func (s *IdentityService) LoginLocal(ctx context.Context, username, password string) (*AuthResult, error) {
	if !s.LocalLoginEnabled() {
		return nil, apperror.Forbidden("local login is not configured")
	}

	if username != s.localUser {
		return nil, apperror.ValidationFailed("username", "invalid username or password")
	}
	if err := s.passwords.Verify(s.localHash, password); err != nil {
		return nil, apperror.ValidationFailed("password", "invalid username or password")
	}

	return s.Login(ctx, &auth.Identity{
		ProviderID: "local:" + username,
		Nickname:   username,
	})
}

// CurrentUser resolves the session's user key to the full User record.
func (s *IdentityService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// displayName derives the stored display name from a provider nickname:
// everything before the first "@". "alice@example.com" → "alice".
func displayName(nickname string) string {
	name, _, _ := strings.Cut(nickname, "@")
	return name
}
