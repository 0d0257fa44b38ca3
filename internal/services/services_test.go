package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"event-hosting/internal/docstore"
	"event-hosting/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentNotification struct {
	Channel string
	Notification
}

// recordingNotifier captures notifications in memory.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Feed(ctx context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{Channel: "feed", Notification: n})
}

func (r *recordingNotifier) User(ctx context.Context, userID string, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{Channel: "user-" + userID, Notification: n})
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		types = append(types, n.Type)
	}
	return types
}

func newTestAuth(store docstore.Store) *AuthService {
	return NewAuthService(testLogger(), store, 4)
}

func registerUser(t *testing.T, auth *AuthService, email string) models.User {
	t.Helper()
	user, err := auth.Register(context.Background(), email, "Passw0rd!")
	require.NoError(t, err)
	return user
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// staleCache answers reads from a snapshot that misses later writes, like an
// outdated cache entry, and writes through to the backend.
type staleCache struct {
	snapshot docstore.Store
	backend  docstore.Store
}

func newStaleCache() *staleCache {
	return &staleCache{snapshot: docstore.NewMemory(), backend: docstore.NewMemory()}
}

func (c *staleCache) ReadAll(ctx context.Context, collection string) ([]docstore.Document, error) {
	return c.snapshot.ReadAll(ctx, collection)
}

func (c *staleCache) Read(ctx context.Context, path string) ([]byte, error) {
	return c.snapshot.Read(ctx, path)
}

func (c *staleCache) Write(ctx context.Context, path string, data []byte) error {
	return c.backend.Write(ctx, path, data)
}

func (c *staleCache) Append(ctx context.Context, collection string, data []byte) (string, error) {
	return c.backend.Append(ctx, collection, data)
}

func (c *staleCache) Unwrap() docstore.Store {
	return c.backend
}

var errStoreDown = errors.New("store unavailable")

// faultyStore fails writes under a path prefix and appends to a collection
// while the matching flag is set.
type faultyStore struct {
	docstore.Store

	mu           sync.Mutex
	failWrites   string
	failAppendTo string
}

func (f *faultyStore) Write(ctx context.Context, path string, data []byte) error {
	f.mu.Lock()
	prefix := f.failWrites
	f.mu.Unlock()
	if prefix != "" && strings.HasPrefix(path, prefix) {
		return errStoreDown
	}
	return f.Store.Write(ctx, path, data)
}

func (f *faultyStore) Append(ctx context.Context, collection string, data []byte) (string, error) {
	f.mu.Lock()
	failing := f.failAppendTo
	f.mu.Unlock()
	if failing == collection {
		return "", errStoreDown
	}
	return f.Store.Append(ctx, collection, data)
}

func (f *faultyStore) set(failWrites, failAppendTo string) {
	f.mu.Lock()
	f.failWrites, f.failAppendTo = failWrites, failAppendTo
	f.mu.Unlock()
}
