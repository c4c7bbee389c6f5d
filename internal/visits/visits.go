// Package visits counts site visits ("logs").
//
// The count lives inside the persisted document by default, which means an
// increment is a fetch, a modify and a whole-document save. Two concurrent
// increments can lose one of them; for a low-stakes counter that race is
// accepted. RedisCounter is the atomic alternative.
package visits

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/mohammadalshikh/orbit/internal/store"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// Counter increments the visit count and returns the new value.
type Counter interface {
	Increment(ctx context.Context) (int, error)
}

// DocumentCounter keeps the count in the document's logs field.
type DocumentCounter struct {
	store store.DocumentStore
}

func NewDocumentCounter(s store.DocumentStore) *DocumentCounter {
	return &DocumentCounter{store: s}
}

// Increment is a non-atomic read-modify-write against the remote document.
func (c *DocumentCounter) Increment(ctx context.Context) (int, error) {
	doc, err := c.store.Fetch(ctx)
	if err != nil {
		return 0, xerrors.Wrap(err, "fetch document for log increment")
	}
	doc.Logs++
	if err := c.store.Save(ctx, doc); err != nil {
		return 0, xerrors.Wrap(err, "save document for log increment")
	}
	return doc.Logs, nil
}

// DefaultRedisKey is used when no key is configured.
const DefaultRedisKey = "orbit:logs"

// RedisCounter keeps the count in a single Redis key updated with INCR.
type RedisCounter struct {
	client redis.Cmdable
	key    string
}

func NewRedisCounter(client redis.Cmdable, key string) *RedisCounter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCounter{client: client, key: key}
}

func (c *RedisCounter) Increment(ctx context.Context) (int, error) {
	n, err := c.client.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, xerrors.Wrapf(err, "redis INCR %s", c.key)
	}
	return int(n), nil
}

// Seed sets the counter to n unless it already exists, so switching from
// the document counter keeps the running total.
func (c *RedisCounter) Seed(ctx context.Context, n int) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key, n, 0).Result()
	if err != nil {
		return false, xerrors.Wrapf(err, "redis SETNX %s", c.key)
	}
	return ok, nil
}

// Ping checks that Redis is reachable.
func (c *RedisCounter) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return xerrors.Wrap(err, "redis ping")
	}
	return nil
}
