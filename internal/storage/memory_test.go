package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_TTL(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	s := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	if err := s.Put(ctx, "admin:1", []byte("{}"), 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "sess:1", []byte("{}"), 0); err != nil {
		t.Fatal(err)
	}

	clock.Advance(24*time.Hour - time.Millisecond)
	if _, err := s.Get(ctx, "admin:1"); err != nil {
		t.Fatalf("entry should survive until its TTL: %v", err)
	}

	clock.Advance(time.Millisecond)
	if _, err := s.Get(ctx, "admin:1"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("entry should expire at its TTL, got %v", err)
	}

	clock.Advance(365 * 24 * time.Hour)
	if _, err := s.Get(ctx, "sess:1"); err != nil {
		t.Errorf("entry without TTL must not expire: %v", err)
	}

	res, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Keys) != 1 || res.Keys[0] != "sess:1" {
		t.Errorf("List should hide expired keys, got %v", res.Keys)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_PutRefreshesTTL(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	s := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	_ = s.Put(ctx, "k", []byte("1"), time.Hour)
	clock.Advance(50 * time.Minute)
	_ = s.Put(ctx, "k", []byte("2"), time.Hour)
	clock.Advance(50 * time.Minute)

	if _, err := s.Get(ctx, "k"); err != nil {
		t.Errorf("re-put should restart the TTL: %v", err)
	}
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	v := []byte("abc")
	_ = s.Put(ctx, "k", v, 0)
	v[0] = 'x'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", got)
	}
	got[0] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased stored buffer: %q", again)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Put(ctx, "k", []byte("v"), 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(WithShards(4))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				_ = s.Put(ctx, key, []byte{byte(j)}, 0)
				_, _ = s.Get(ctx, key)
				_, _ = s.List(ctx, ListOptions{Limit: 3})
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 8 {
		t.Errorf("Len = %d, want 8", s.Len())
	}
}
