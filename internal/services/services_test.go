package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/accounts-be/internal/auth"
	"github.com/isdelr/accounts-be/internal/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testDependencies struct {
	users  *UserService
	auth   *AuthService
	hasher *auth.Hasher
	tokens *auth.TokenService
}

func setupTest(t *testing.T) *testDependencies {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	hasher := auth.NewHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour})
	require.NoError(t, err)

	users := NewUserService(db, hasher)
	return &testDependencies{
		users:  users,
		auth:   NewAuthService(users, hasher, tokens),
		hasher: hasher,
		tokens: tokens,
	}
}

func strPtr(s string) *string { return &s }

var ctx = context.Background()
