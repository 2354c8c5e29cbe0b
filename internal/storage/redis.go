package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 256

// RedisStore is a namespaced Store backed by Redis.
//
// List gathers matching keys with SCAN and sorts them, so pagination is
// stable in byte order but costs a full scan of the namespace per page.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store whose keys live under keyPrefix+namespace.
func NewRedisStore(client redis.UniversalClient, keyPrefix, namespace string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: keyPrefix + namespace + "/",
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		return nil, redisError(err)
	}
	return value, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return redisError(s.client.Set(ctx, s.key(key), value, ttl).Err())
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return redisError(s.client.Del(ctx, s.key(key)).Err())
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	match := escapeGlob(s.key(opts.Prefix)) + "*"

	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, redisError(err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	// SCAN may return a key more than once.
	sort.Strings(keys)
	keys = dedupSorted(keys)
	return paginate(keys, opts), nil
}

// Swap implements Swapper with WATCH/MULTI.
func (s *RedisStore) Swap(ctx context.Context, key string, oldValue, newValue []byte, ttl time.Duration) (bool, error) {
	k := s.key(key)
	swapped := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if oldValue != nil {
				return nil
			}
		case err != nil:
			return err
		default:
			if oldValue == nil || !bytes.Equal(current, oldValue) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, newValue, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, redisError(err)
	}
	return swapped, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return redisError(s.client.Ping(ctx).Err())
}

// redisError maps go-redis errors onto storage errors.
func redisError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrKeyNotFound
	case errors.Is(err, redis.ErrClosed):
		return ErrClosed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// escapeGlob escapes Redis MATCH metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func dedupSorted(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	out := keys[:1]
	for _, k := range keys[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
