package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached_ReadAllMissPopulatesCache(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	backend := NewMemory()
	require.NoError(t, backend.Write(ctx, "events/a", []byte(`{"title":"A"}`)))

	expected, err := backend.ReadAll(ctx, "events")
	require.NoError(t, err)
	encoded, err := encMode.Marshal(expected)
	require.NoError(t, err)

	mock.ExpectGet("docstore:list:events").RedisNil()
	mock.ExpectGet("docstore:gen:events").RedisNil()
	mock.ExpectEvalSha(populate.Hash(), []string{"docstore:gen:events", "docstore:list:events"}, "0", encoded, int64(60000)).SetVal(int64(1))

	cached := NewCached(backend, db, time.Minute)
	docs, err := cached.ReadAll(ctx, "events")

	require.NoError(t, err)
	assert.Equal(t, expected, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_ReadAllHitSkipsBackend(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()

	cachedDocs := []Document{{Key: "a", Data: []byte(`{"title":"A"}`)}}
	encoded, err := encMode.Marshal(cachedDocs)
	require.NoError(t, err)

	mock.ExpectGet("docstore:list:events").SetVal(string(encoded))

	cached := NewCached(NewMemory(), db, time.Minute)
	docs, err := cached.ReadAll(ctx, "events")

	require.NoError(t, err)
	assert.Equal(t, cachedDocs, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_ReadFallsThroughOnRedisError(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	backend := NewMemory()
	require.NoError(t, backend.Write(ctx, "users/u1", []byte(`{"name":"Asha"}`)))

	mock.ExpectGet("docstore:doc:users/u1").SetErr(errors.New("connection refused"))
	mock.ExpectGet("docstore:gen:users").SetErr(errors.New("connection refused"))

	cached := NewCached(backend, db, time.Minute)
	data, err := cached.Read(ctx, "users/u1")

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Asha"}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_ReadNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()

	mock.ExpectGet("docstore:doc:users/missing").RedisNil()
	mock.ExpectGet("docstore:gen:users").SetVal("3")

	cached := NewCached(NewMemory(), db, time.Minute)
	_, err := cached.Read(ctx, "users/missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	backend := NewMemory()

	mock.ExpectIncr("docstore:gen:events").SetVal(1)
	mock.ExpectDel("docstore:doc:events/e1", "docstore:list:events").SetVal(2)

	cached := NewCached(backend, db, time.Minute)
	require.NoError(t, cached.Write(ctx, "events/e1", []byte(`{"title":"E"}`)))

	data, err := backend.Read(ctx, "events/e1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"E"}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_FailedWriteDoesNotInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()

	cached := NewCached(NewMemory(), db, time.Minute)
	err := cached.Write(context.Background(), "events/e1", []byte(`not json`))

	assert.ErrorIs(t, err, ErrInvalidData)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_ReadUsesCurrentGeneration(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	backend := NewMemory()
	require.NoError(t, backend.Write(ctx, "users/u1", []byte(`{"name":"Asha"}`)))

	mock.ExpectGet("docstore:doc:users/u1").RedisNil()
	mock.ExpectGet("docstore:gen:users").SetVal("7")
	mock.ExpectEvalSha(populate.Hash(), []string{"docstore:gen:users", "docstore:doc:users/u1"}, "7", []byte(`{"name":"Asha"}`), int64(60000)).SetVal(int64(1))

	cached := NewCached(backend, db, time.Minute)
	data, err := cached.Read(ctx, "users/u1")

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Asha"}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// racingStore runs a write after it has read the collection, so the listing it
// returns is already outdated.
type racingStore struct {
	Store
	during func()
}

func (r *racingStore) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	docs, err := r.Store.ReadAll(ctx, collection)
	r.during()
	return docs, err
}

func TestCached_WriteDuringReadKeepsOldGeneration(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	backend := NewMemory()

	stale, err := encMode.Marshal([]Document{})
	require.NoError(t, err)

	racing := &racingStore{Store: backend}
	cached := NewCached(racing, db, time.Minute)
	racing.during = func() {
		require.NoError(t, cached.Write(ctx, "users/u1", []byte(`{"email":"dup@example.com"}`)))
	}

	mock.ExpectGet("docstore:list:users").RedisNil()
	mock.ExpectGet("docstore:gen:users").RedisNil()
	mock.ExpectIncr("docstore:gen:users").SetVal(1)
	mock.ExpectDel("docstore:doc:users/u1", "docstore:list:users").SetVal(0)
	// the fill carries the generation read before the write, so the script rejects it
	mock.ExpectEvalSha(populate.Hash(), []string{"docstore:gen:users", "docstore:list:users"}, "0", stale, int64(60000)).SetVal(int64(0))

	docs, err := cached.ReadAll(ctx, "users")

	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirect(t *testing.T) {
	db, _ := redismock.NewClientMock()
	backend := NewMemory()

	assert.Same(t, backend, Direct(NewCached(backend, db, time.Minute)))
	assert.Same(t, backend, Direct(backend))
}
