package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/storage"
)

func TestRealm_CreateLookup(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	sess := domain.NewSession("tok-1", f.nowMillis(), 0)
	sid, err := f.users.Create(ctx, sess)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sid == "" {
		t.Fatal("Create() returned empty sid")
	}

	if _, err := f.sessions.Get(ctx, "sess:"+sid); err != nil {
		t.Errorf("session not stored under sess: prefix: %v", err)
	}

	got, err := f.users.Lookup(ctx, sid)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Token != "tok-1" || got.CreatedAt != sess.CreatedAt {
		t.Errorf("Lookup() = %+v, want %+v", got, sess)
	}
}

func TestRealm_LookupNotFound(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	if err := f.sessions.Put(ctx, "sess:broken", []byte(`{"token":`), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.sessions.Put(ctx, "sess:empty", []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		sid  string
	}{
		{"empty sid", ""},
		{"unknown sid", "nope"},
		{"malformed json", "broken"},
		{"missing fields", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Lookup(ctx, tt.sid)
			if !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("Lookup(%q) error = %v, want ErrSessionNotFound", tt.sid, err)
			}
		})
	}
}

func TestRealm_StoreErrorPropagates(t *testing.T) {
	realm := NewUserRealm(failingStore{}, RealmConfig{})

	_, err := realm.Lookup(context.Background(), "abc")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup() error = %v, want store error", err)
	}
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("Lookup() error = %v, want wrapped ErrUnavailable", err)
	}
}

func TestRealm_RenewTouches(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	sess := domain.NewSession("tok-1", f.nowMillis(), 0)
	sid, err := f.users.Create(ctx, sess)
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(5 * time.Minute)
	if err := f.users.Renew(ctx, sid, sess); err != nil {
		t.Fatalf("Renew() error = %v", err)
	}

	got, err := f.users.Lookup(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastSeen != f.nowMillis() {
		t.Errorf("LastSeen = %d, want %d", got.LastSeen, f.nowMillis())
	}
	if got.CreatedAt == got.LastSeen {
		t.Error("CreatedAt should not move on renew")
	}
}

func TestRealm_AdminTTL(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	sess := domain.NewAdminSession("10.0.0.1", f.nowMillis())
	sid, err := f.admins.Create(ctx, sess)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("refresh restarts ttl", func(t *testing.T) {
		f.clock.Advance(23 * time.Hour)
		if err := f.admins.Renew(ctx, sid, sess); err != nil {
			t.Fatalf("Renew() error = %v", err)
		}
		f.clock.Advance(23 * time.Hour)
		if _, err := f.admins.Lookup(ctx, sid); err != nil {
			t.Errorf("Lookup() after refresh error = %v", err)
		}
	})

	t.Run("expires without activity", func(t *testing.T) {
		f.clock.Advance(time.Hour + time.Millisecond)
		if _, err := f.admins.Lookup(ctx, sid); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Lookup() error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestRealm_Delete(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	sid, err := f.users.Create(ctx, domain.NewSession("tok", f.nowMillis(), 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.users.Delete(ctx, sid); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.users.Lookup(ctx, sid); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup() after delete error = %v", err)
	}
	if err := f.users.Delete(ctx, ""); err != nil {
		t.Errorf("Delete(\"\") error = %v", err)
	}
}

func TestRealm_ScanSkipsOtherPrefixesAndMalformed(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		if _, err := f.users.Create(ctx, domain.NewSession(tok, f.nowMillis(), 0)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.admins.Create(ctx, domain.NewAdminSession("", f.nowMillis())); err != nil {
		t.Fatal(err)
	}
	if err := f.sessions.Put(ctx, "sess:zz-broken", []byte("not json"), 0); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	err := f.users.Scan(ctx, func(_ string, s *domain.Session) bool {
		seen[s.Token] = true
		return true
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(seen) != 3 || !seen["a"] || !seen["b"] || !seen["c"] {
		t.Errorf("Scan() saw %v, want a, b, c", seen)
	}

	count := 0
	_ = f.users.Scan(ctx, func(string, *domain.Session) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Scan() after stop visited %d, want 1", count)
	}
}
