package docstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

var encMode, _ = cbor.CoreDetEncOptions().EncMode()

// populate stores ARGV[2] under KEYS[2] only while the generation counter in
// KEYS[1] still holds ARGV[1]. A write between the backend read and the cache
// fill bumps the counter and the stale value is dropped.
var populate = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)

// Cached is a read-through Redis cache in front of another Store. Cache
// failures are logged and the request falls through to the wrapped store.
type Cached struct {
	next  Store
	redis *redis.Client
	ttl   time.Duration
}

func NewCached(next Store, client *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, redis: client, ttl: ttl}
}

func listKey(collection string) string {
	return "docstore:list:" + collection
}

func docKey(path string) string {
	return "docstore:doc:" + path
}

func genKey(collection string) string {
	return "docstore:gen:" + collection
}

// Unwrap returns the store behind the cache.
func (c *Cached) Unwrap() Store {
	return c.next
}

// generation reads the invalidation counter of a collection. ok is false when
// Redis cannot be read, in which case nothing may be cached.
func (c *Cached) generation(ctx context.Context, collection string) (gen string, ok bool) {
	gen, err := c.redis.Get(ctx, genKey(collection)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		slog.Warn("Cache generation read failed", "collection", collection, "error", err)
		return "", false
	}
	return gen, true
}

func (c *Cached) fill(ctx context.Context, collection, key, gen string, value []byte) {
	stored, err := populate.Run(ctx, c.redis, []string{genKey(collection), key}, gen, value, c.ttl.Milliseconds()).Int64()
	if err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
		return
	}
	if stored == 0 {
		slog.Debug("Skipped cache fill after concurrent write", "key", key)
	}
}

func (c *Cached) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	key := listKey(collection)

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var docs []Document
		if err := cbor.Unmarshal(raw, &docs); err == nil {
			return docs, nil
		}
		slog.Warn("Discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("Cache read failed", "key", key, "error", err)
	}

	gen, cacheable := c.generation(ctx, collection)

	docs, err := c.next.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !cacheable {
		return docs, nil
	}

	encoded, err := encMode.Marshal(docs)
	if err != nil {
		slog.Warn("Cache encode failed", "key", key, "error", err)
		return docs, nil
	}
	c.fill(ctx, collection, key, gen, encoded)
	return docs, nil
}

func (c *Cached) Read(ctx context.Context, path string) ([]byte, error) {
	key := docKey(path)

	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("Cache read failed", "key", key, "error", err)
	}

	collection, _, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	gen, cacheable := c.generation(ctx, collection)

	data, err := c.next.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.fill(ctx, collection, key, gen, data)
	}
	return data, nil
}

func (c *Cached) Write(ctx context.Context, path string, data []byte) error {
	if err := c.next.Write(ctx, path, data); err != nil {
		return err
	}
	c.Invalidate(ctx, path)
	return nil
}

func (c *Cached) Append(ctx context.Context, collection string, data []byte) (string, error) {
	key, err := c.next.Append(ctx, collection, data)
	if err != nil {
		return "", err
	}
	c.Invalidate(ctx, Path(collection, key))
	return key, nil
}

// Invalidate bumps the generation of the collection, then drops the cached
// document at path and the cached listing of its collection.
func (c *Cached) Invalidate(ctx context.Context, path string) {
	collection, _, err := SplitPath(path)
	if err != nil {
		return
	}
	if err := c.redis.Incr(ctx, genKey(collection)).Err(); err != nil {
		slog.Warn("Cache generation bump failed", "path", path, "error", err)
	}
	if err := c.redis.Del(ctx, docKey(path), listKey(collection)).Err(); err != nil {
		slog.Warn("Cache invalidation failed", "path", path, "error", err)
	}
}
