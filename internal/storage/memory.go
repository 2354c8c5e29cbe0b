package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of memory shards.
const DefaultShardCount = 16

// MemoryStore is an in-process Store. Keys are spread over shards by
// murmur3 hash; expired entries are dropped lazily on access.
type MemoryStore struct {
	shards []*memoryShard
	mask   uint32
	now    func() time.Time
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the time source used for TTL expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithShards sets the shard count. It must be a power of two.
func WithShards(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 && n&(n-1) == 0 {
			s.shards = make([]*memoryShard, n)
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		shards: make([]*memoryShard, DefaultShardCount),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &memoryShard{items: make(map[string]memoryEntry)}
	}
	s.mask = uint32(len(s.shards) - 1)
	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	return s.shards[murmur3.Sum32([]byte(key))&s.mask]
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shard(key)
	now := s.now()

	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, ErrKeyNotFound
	}
	if e.expired(now) {
		sh.mu.Lock()
		if cur, ok := sh.items[key]; ok && cur.expired(now) {
			delete(sh.items, key)
		}
		sh.mu.Unlock()
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(e.value), nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shard(key)
	sh.mu.Lock()
	sh.items[key] = s.entry(value, ttl)
	sh.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.items, key)
	sh.mu.Unlock()
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	var keys []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, e := range sh.items {
			if strings.HasPrefix(k, opts.Prefix) && !e.expired(now) {
				keys = append(keys, k)
			}
		}
		sh.mu.RUnlock()
	}
	sort.Strings(keys)
	return paginate(keys, opts), nil
}

// Swap implements Swapper.
func (s *MemoryStore) Swap(ctx context.Context, key string, oldValue, newValue []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.items[key]
	if ok && e.expired(now) {
		ok = false
	}
	switch {
	case oldValue == nil && ok:
		return false, nil
	case oldValue != nil && (!ok || !bytes.Equal(e.value, oldValue)):
		return false, nil
	}
	sh.items[key] = s.entry(newValue, ttl)
	return true, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	now := s.now()
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.items {
			if !e.expired(now) {
				n++
			}
		}
		sh.mu.RUnlock()
	}
	return n
}

func (s *MemoryStore) entry(value []byte, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}
