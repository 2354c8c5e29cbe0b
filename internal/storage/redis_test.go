package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		_, client := newTestRedis(t)
		return NewRedisStore(client, "pagegate:", NamespaceTokens)
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "pagegate:", NamespaceSessions)
	ctx := context.Background()

	if err := s.Put(ctx, "sess:abc", []byte(`{"token":"t"}`), 0); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("pagegate:sessions/sess:abc") {
		t.Errorf("unexpected key layout: %v", mr.Keys())
	}
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "pagegate:", NamespaceSessions)
	ctx := context.Background()

	if err := s.Put(ctx, "admin:1", []byte("{}"), 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("pagegate:sessions/admin:1"); ttl != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", ttl)
	}

	mr.FastForward(23 * time.Hour)
	if err := s.Put(ctx, "admin:1", []byte("{}"), 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(23 * time.Hour)
	if _, err := s.Get(ctx, "admin:1"); err != nil {
		t.Errorf("refreshed entry should survive: %v", err)
	}

	mr.FastForward(25 * time.Hour)
	if _, err := s.Get(ctx, "admin:1"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected expiry after 24h without refresh, got %v", err)
	}
}

func TestRedisStore_ListEscapesGlob(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisStore(client, "pagegate:", NamespaceTokens)
	ctx := context.Background()

	_ = s.Put(ctx, "a*", []byte("{}"), 0)
	_ = s.Put(ctx, "ab", []byte("{}"), 0)

	res, err := s.List(ctx, ListOptions{Prefix: "a*"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Keys) != 1 || res.Keys[0] != "a*" {
		t.Errorf("glob characters in prefix must match literally, got %v", res.Keys)
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "pagegate:", NamespaceTokens)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := map[string]string{
		"abc-":   "abc-",
		"a*b":    `a\*b`,
		"q?":     `q\?`,
		"[x]":    `\[x\]`,
		`back\`:  `back\\`,
		"sess:1": "sess:1",
	}
	for in, want := range tests {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
