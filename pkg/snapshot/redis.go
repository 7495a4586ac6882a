package snapshot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots in Redis, one string key per snapshot.
// Closing the store does not close the client, which may be shared.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default: "tx:snapshot:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

// WithTTL expires snapshots after d. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisStore) {
		r.ttl = d
	}
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		prefix: "tx:snapshot:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Save(ctx context.Context, key string, s *Snapshot) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	if r.closed.Load() {
		return nil, ErrStoreClosed
	}
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Decode(data)
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	return r.client.Del(ctx, r.key(key)).Err()
}

// Prefix returns the key prefix.
func (r *RedisStore) Prefix() string {
	return r.prefix
}

func (r *RedisStore) Close() error {
	r.closed.Store(true)
	return nil
}
