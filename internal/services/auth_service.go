package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/isdelr/accounts-be/internal/models"
)

// TokenIssuer issues and validates bearer tokens carrying a user id.
type TokenIssuer interface {
	Issue(subjectID int64) (string, error)
	Validate(token string) (int64, error)
}

// AuthServiceProvider defines the interface for the authentication flow.
type AuthServiceProvider interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	ResolvePrincipal(ctx context.Context, token string) (models.User, error)
	IssueToken(user models.User) (string, error)
}

// AuthService verifies credentials and maps tokens back to users. It keeps no
// session state; the token is the session.
type AuthService struct {
	users  UserServiceProvider
	hasher PasswordHasher
	tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserServiceProvider, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Authenticate returns the user owning email if password matches. An unknown
// email and a wrong password fail with the same ErrAuthFailure.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		// Spend the same hashing time as a real check.
		s.hasher.Verify(password, s.placeholderHash())
		return models.User{}, apperrors.ErrAuthFailure
	}
	if err != nil {
		return models.User{}, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		return models.User{}, apperrors.ErrAuthFailure
	}
	return user, nil
}

// ResolvePrincipal validates token and loads the user it was issued for.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (models.User, error) {
	id, err := s.tokens.Validate(token)
	if err != nil {
		return models.User{}, apperrors.ErrAuthFailure
	}

	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.User{}, apperrors.ErrAuthFailure
	}
	if err != nil {
		return models.User{}, fmt.Errorf("resolve principal: %w", err)
	}
	return user, nil
}

// IssueToken creates an access token for user.
func (s *AuthService) IssueToken(user models.User) (string, error) {
	return s.tokens.Issue(user.ID)
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("placeholder-password")
	})
	return s.dummyHash
}
