package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-hosting/internal/docstore"
)

func TestMonitor_CollectReportsCollectionSizes(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, "events", []byte(`{}`))
		require.NoError(t, err)
	}
	require.NoError(t, store.Write(ctx, "users/u1", []byte(`{}`)))

	NewMonitor(store, time.Minute).Collect(ctx)

	assert.Equal(t, float64(3), testutil.ToFloat64(collectionSize.WithLabelValues("events")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collectionSize.WithLabelValues("users")))
	assert.Equal(t, float64(0), testutil.ToFloat64(collectionSize.WithLabelValues("reservations")))
	assert.Greater(t, testutil.ToFloat64(goroutineCount), float64(0))
}

func TestNewMonitor_DefaultInterval(t *testing.T) {
	m := NewMonitor(docstore.NewMemory(), 0)
	assert.Equal(t, 30*time.Second, m.interval)
}

func TestTrackAuthAttempt(t *testing.T) {
	before := testutil.ToFloat64(authAttempts.WithLabelValues("signin", "rejected"))

	TrackAuthAttempt("signin", "rejected")
	TrackAuthAttempt("signin", "rejected")

	after := testutil.ToFloat64(authAttempts.WithLabelValues("signin", "rejected"))
	assert.Equal(t, before+2, after)
}

func TestTrackEventOperation(t *testing.T) {
	before := testutil.ToFloat64(eventOperations.WithLabelValues("like", "success"))

	TrackEventOperation("like", "success")

	assert.Equal(t, before+1, testutil.ToFloat64(eventOperations.WithLabelValues("like", "success")))
}

func TestInstrumentStore_PassesThroughAndObserves(t *testing.T) {
	ctx := context.Background()
	store := InstrumentStore(docstore.NewMemory())

	require.NoError(t, store.Write(ctx, "users/u1", []byte(`{"name":"Asha"}`)))
	data, err := store.Read(ctx, "users/u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Asha"}`, string(data))

	_, err = store.Read(ctx, "users/missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	key, err := store.Append(ctx, "events", []byte(`{}`))
	require.NoError(t, err)
	docs, err := store.ReadAll(ctx, "events")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, key, docs[0].Key)

	// write, read, read not_found, append and read_all series
	assert.GreaterOrEqual(t, testutil.CollectAndCount(storeLatency), 5)
}
