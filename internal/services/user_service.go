package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/isdelr/accounts-be/internal/crud"
	"github.com/isdelr/accounts-be/internal/database"
	"github.com/isdelr/accounts-be/internal/models"
)

// PasswordHasher is the one-way hash primitive used for credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, page crud.Page) ([]models.User, error)
	CreateUser(ctx context.Context, in models.UserCreate) (models.User, error)
	UpdateUser(ctx context.Context, id int64, in models.UserUpdate) (models.User, error)
	DeleteUser(ctx context.Context, id int64) (models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

var userTable = crud.Table[models.User]{
	Name:     "users",
	Columns:  []string{"first_name", "surname", "email", "is_admin", "hashed_password", "created_at"},
	Sortable: []string{"first_name", "surname", "email", "is_admin", "created_at"},
	Scan:     scanUser,
}

// scanUser scans the key followed by userTable.Columns.
func scanUser(s crud.Scanner) (models.User, error) {
	var u models.User
	var firstName, surname sql.NullString
	err := s.Scan(&u.ID, &firstName, &surname, &u.Email, &u.IsAdmin, &u.HashedPassword, &u.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	if firstName.Valid {
		u.FirstName = &firstName.String
	}
	if surname.Valid {
		u.Surname = &surname.String
	}
	return u, nil
}

// UserService owns the user rows. Everything else reads and writes them through it.
type UserService struct {
	users  *crud.Engine[models.User]
	hasher PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(db database.Querier, hasher PasswordHasher) *UserService {
	return &UserService{
		users:  crud.New(db, userTable),
		hasher: hasher,
	}
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.users.GetOrFail(ctx, id)
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	user, ok, err := s.users.GetBy(ctx, "email", email)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, fmt.Errorf("user with email %s: %w", email, apperrors.ErrNotFound)
	}
	return user, nil
}

// ListUsers returns a page of users.
func (s *UserService) ListUsers(ctx context.Context, page crud.Page) ([]models.User, error) {
	return s.users.List(ctx, page)
}

// CreateUser validates the payload, hashes the password and stores the user.
func (s *UserService) CreateUser(ctx context.Context, in models.UserCreate) (models.User, error) {
	if err := in.Validate(); err != nil {
		return models.User{}, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, map[string]any{
		"first_name":      in.FirstName,
		"surname":         in.Surname,
		"email":           in.Email,
		"is_admin":        in.IsAdmin,
		"hashed_password": hashed,
	})
	if errors.Is(err, apperrors.ErrConflict) {
		return models.User{}, fmt.Errorf("the given email %w", apperrors.ErrConflict)
	}
	return user, err
}

// UpdateUser applies the fields present in the update; the password is not part of it.
func (s *UserService) UpdateUser(ctx context.Context, id int64, in models.UserUpdate) (models.User, error) {
	if err := in.Validate(); err != nil {
		return models.User{}, err
	}

	existing, err := s.users.GetOrFail(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Update(ctx, existing, in.Changes())
	if errors.Is(err, apperrors.ErrConflict) {
		return models.User{}, fmt.Errorf("the given email %w", apperrors.ErrConflict)
	}
	return user, err
}

// DeleteUser removes a user and returns the removed record.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (models.User, error) {
	return s.users.Remove(ctx, id)
}

// CountUsers returns the number of stored users.
func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}
