// ABOUTME: Tests for user registration and login
// ABOUTME: Verifies that every credential failure looks the same to the caller

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/psyflow/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "auth.db"), store.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewService(st, newTestHasher(t), logger), st
}

func TestRegister(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Ana ", " ana@example.com ", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	stored, err := st.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)

	settings, err := st.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultTheme, settings.Theme)
}

func TestRegister_MissingCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "secret123"},
		{"blank email", "   ", "secret123"},
		{"empty password", "ana@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, "Ana", tt.email, tt.password)
			assert.ErrorIs(t, err, ErrMissingCredentials)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "ana@example.com", "different")
	assert.ErrorIs(t, err, store.ErrEmailExists)

	// Original credentials still work
	_, err = svc.Login(ctx, "ana@example.com", "secret123")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "Ana", user.Name)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)

	// A user whose stored hash is unusable
	require.NoError(t, st.CreateUser(ctx, &store.User{
		Name:         "Broken",
		Email:        "broken@example.com",
		PasswordHash: "not-a-bcrypt-hash",
	}, nil))

	_, wrongPassword := svc.Login(ctx, "ana@example.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "secret123")
	_, badHash := svc.Login(ctx, "broken@example.com", "secret123")

	for _, err := range []error{wrongPassword, unknownEmail, badHash} {
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, wrongPassword.Error(), badHash.Error())
}

func TestLogin_StorageFailure(t *testing.T) {
	mock := store.NewMockStore()
	mock.Err = errors.New("disk I/O error")
	svc := NewService(mock, newTestHasher(t), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Login(context.Background(), "ana@example.com", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WithMockStore(t *testing.T) {
	mock := store.NewMockStore()
	svc := NewService(mock, newTestHasher(t), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ana", "Ana@Example.com", "secret123")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Ana@Example.com", user.Email)
}
