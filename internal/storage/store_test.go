package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// runStoreSuite exercises the Store contract shared by every backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put(ctx, "k1", []byte("v1"), 0); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "k1")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "v1" {
			t.Errorf("Get = %q, want v1", got)
		}
	})

	t.Run("Get missing key", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Put overwrites", func(t *testing.T) {
		s := newStore(t)
		_ = s.Put(ctx, "k", []byte("a"), 0)
		_ = s.Put(ctx, "k", []byte("b"), 0)
		got, _ := s.Get(ctx, "k")
		if string(got) != "b" {
			t.Errorf("Get = %q, want b", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		_ = s.Put(ctx, "k", []byte("v"), 0)
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Errorf("deleting an absent key should succeed, got %v", err)
		}
	})

	t.Run("List by prefix keeps order", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"xyz-", "abc-2", "abc-"} {
			if err := s.Put(ctx, k, []byte("{}"), 0); err != nil {
				t.Fatal(err)
			}
		}
		res, err := s.List(ctx, ListOptions{Prefix: "abc-", Limit: 100})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"abc-", "abc-2"}
		if !reflect.DeepEqual(res.Keys, want) {
			t.Errorf("Keys = %v, want %v", res.Keys, want)
		}
		if !res.Complete || res.Cursor != "" {
			t.Errorf("expected complete listing, got complete=%v cursor=%q", res.Complete, res.Cursor)
		}
	})

	t.Run("List paginates with cursor", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			_ = s.Put(ctx, fmt.Sprintf("p-%d", i), []byte("{}"), 0)
		}
		_ = s.Put(ctx, "q-0", []byte("{}"), 0)

		var all []string
		cursor := ""
		pages := 0
		for {
			res, err := s.List(ctx, ListOptions{Prefix: "p-", Limit: 2, Cursor: cursor})
			if err != nil {
				t.Fatal(err)
			}
			pages++
			all = append(all, res.Keys...)
			if res.Complete {
				break
			}
			if res.Cursor == "" {
				t.Fatal("incomplete page without cursor")
			}
			cursor = res.Cursor
			if pages > 10 {
				t.Fatal("pagination does not terminate")
			}
		}
		want := []string{"p-0", "p-1", "p-2", "p-3", "p-4"}
		if !reflect.DeepEqual(all, want) {
			t.Errorf("paged keys = %v, want %v", all, want)
		}
		if pages != 3 {
			t.Errorf("pages = %d, want 3", pages)
		}
	})

	t.Run("Swap", func(t *testing.T) {
		s := newStore(t)
		sw, ok := s.(Swapper)
		if !ok {
			t.Skip("store does not implement Swapper")
		}

		swapped, err := sw.Swap(ctx, "k", nil, []byte("v1"), 0)
		if err != nil || !swapped {
			t.Fatalf("create via Swap: swapped=%v err=%v", swapped, err)
		}
		swapped, _ = sw.Swap(ctx, "k", nil, []byte("v2"), 0)
		if swapped {
			t.Error("Swap with nil old value must fail when key exists")
		}
		swapped, _ = sw.Swap(ctx, "k", []byte("stale"), []byte("v2"), 0)
		if swapped {
			t.Error("Swap with stale old value must fail")
		}
		swapped, _ = sw.Swap(ctx, "k", []byte("v1"), []byte("v2"), 0)
		if !swapped {
			t.Error("Swap with current old value must succeed")
		}
		got, _ := s.Get(ctx, "k")
		if string(got) != "v2" {
			t.Errorf("Get after swap = %q, want v2", got)
		}
	})
}
