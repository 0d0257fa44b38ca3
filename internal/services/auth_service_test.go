package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-hosting/internal/docstore"
	"event-hosting/internal/status"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	auth := newTestAuth(store)

	user, err := auth.Register(ctx, "  Asha@Example.com ", "Passw0rd!")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.NotEqual(t, "Passw0rd!", user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())

	stored, err := auth.User(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, stored.Email)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	auth := newTestAuth(store)

	registerUser(t, auth, "asha@example.com")

	_, err := auth.Register(ctx, "ASHA@example.com", "Different1!")
	assert.ErrorIs(t, err, status.ErrUserExists)

	docs, err := store.ReadAll(ctx, usersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "no duplicate record is written")
}

func TestAuthService_RegisterIgnoresStaleCachedUsers(t *testing.T) {
	ctx := context.Background()
	store := newStaleCache()
	auth := newTestAuth(store)

	registerUser(t, auth, "dup@example.com")

	_, err := auth.Register(ctx, "dup@example.com", "Passw0rd!")
	assert.ErrorIs(t, err, status.ErrUserExists)

	_, err = auth.Authorize(ctx, "dup@example.com", "Wrong0rd!")
	assert.ErrorIs(t, err, status.ErrInvalidCredentials)

	docs, err := store.backend.ReadAll(ctx, usersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestAuthService_RegisterConcurrentSameEmail(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	auth := newTestAuth(store)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.Register(ctx, "race@example.com", "Passw0rd!")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, status.ErrUserExists)
		}
	}
	assert.Equal(t, 1, succeeded)

	docs, err := store.ReadAll(ctx, usersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestAuthService_AuthorizeCreatesOnFirstUse(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	auth := newTestAuth(store)

	created, err := auth.Authorize(ctx, "new@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	again, err := auth.Authorize(ctx, "new@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	docs, err := store.ReadAll(ctx, usersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestAuthService_AuthorizeWrongPassword(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(docstore.NewMemory())
	registerUser(t, auth, "asha@example.com")

	_, err := auth.Authorize(ctx, "asha@example.com", "WrongPass1!")
	assert.ErrorIs(t, err, status.ErrInvalidCredentials)
}

func TestAuthService_UserNotFound(t *testing.T) {
	auth := newTestAuth(docstore.NewMemory())

	_, err := auth.User(context.Background(), "missing")
	assert.ErrorIs(t, err, status.ErrUserNotFound)

	_, err = auth.User(context.Background(), "../etc")
	assert.ErrorIs(t, err, status.ErrUserNotFound)
}

func TestNewAuthService_ClampsCost(t *testing.T) {
	auth := NewAuthService(testLogger(), docstore.NewMemory(), 99)
	assert.Equal(t, 10, auth.cost)
}
