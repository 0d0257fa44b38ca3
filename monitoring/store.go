package monitoring

import (
	"context"
	"time"

	"event-hosting/internal/docstore"
)

type instrumentedStore struct {
	next docstore.Store
}

// InstrumentStore records the latency of every call made to next.
func InstrumentStore(next docstore.Store) docstore.Store {
	return &instrumentedStore{next: next}
}

func (s *instrumentedStore) ReadAll(ctx context.Context, collection string) (docs []docstore.Document, err error) {
	started := time.Now()
	defer func() { observeStore("read_all", started, err) }()
	return s.next.ReadAll(ctx, collection)
}

func (s *instrumentedStore) Read(ctx context.Context, path string) (data []byte, err error) {
	started := time.Now()
	defer func() { observeStore("read", started, err) }()
	return s.next.Read(ctx, path)
}

func (s *instrumentedStore) Write(ctx context.Context, path string, data []byte) (err error) {
	started := time.Now()
	defer func() { observeStore("write", started, err) }()
	return s.next.Write(ctx, path, data)
}

func (s *instrumentedStore) Append(ctx context.Context, collection string, data []byte) (key string, err error) {
	started := time.Now()
	defer func() { observeStore("append", started, err) }()
	return s.next.Append(ctx, collection, data)
}
