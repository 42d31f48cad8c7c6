package apperrors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageWrapsCause(t *testing.T) {
	err := Storage("users.get", sql.ErrConnDone)
	require.Error(t, err)

	assert.True(t, IsStorage(err))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.Equal(t, "storage: users.get: sql: connection is already closed", err.Error())

	wrapped := fmt.Errorf("create user: %w", err)
	assert.True(t, IsStorage(wrapped))
}

func TestStorageNil(t *testing.T) {
	assert.NoError(t, Storage("noop", nil))
	assert.False(t, IsStorage(nil))
}

func TestValidation(t *testing.T) {
	err := Validation("field %q is required", "email")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `field "email" is required`)
}
