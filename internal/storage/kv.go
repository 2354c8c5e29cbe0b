package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// Logical namespaces.
const (
	NamespaceSessions = "sessions"
	NamespaceTokens   = "tokens"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
	ErrUnavailable = errors.New("store unavailable")
)

// Store is a namespaced key-value store with optional per-key TTL.
//
// Implementations must be safe for concurrent use. Read-modify-write
// sequences built on Get and Put are not atomic; callers that need
// atomicity use Swapper.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound when the key is
	// absent or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key. A zero ttl means the key never expires.
	// A positive ttl replaces any previous expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns keys matching opts.Prefix in ascending order.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
}

// Swapper is implemented by stores that support an atomic conditional put.
type Swapper interface {
	// Swap replaces the value under key with newValue only if the current
	// value equals oldValue. A nil oldValue requires the key to be absent.
	// It reports whether the swap happened.
	Swap(ctx context.Context, key string, oldValue, newValue []byte, ttl time.Duration) (bool, error)
}

// ListOptions selects a page of keys.
type ListOptions struct {
	// Prefix restricts keys to those starting with it.
	Prefix string

	// Limit caps the number of keys returned. Zero or negative means no cap.
	Limit int

	// Cursor continues a previous listing. It is the opaque value returned
	// in ListResult.Cursor.
	Cursor string
}

// ListResult is one page of keys.
type ListResult struct {
	Keys []string

	// Cursor resumes the listing after the last returned key. Empty when
	// Complete is true.
	Cursor string

	// Complete reports that no further keys match.
	Complete bool
}

// paginate slices a sorted key set according to opts.
func paginate(sorted []string, opts ListOptions) *ListResult {
	start := 0
	if opts.Cursor != "" {
		start = sort.SearchStrings(sorted, opts.Cursor)
		if start < len(sorted) && sorted[start] == opts.Cursor {
			start++
		}
	}
	rest := sorted[start:]

	if opts.Limit <= 0 || len(rest) <= opts.Limit {
		return &ListResult{Keys: append([]string{}, rest...), Complete: true}
	}

	page := append([]string{}, rest[:opts.Limit]...)
	return &ListResult{
		Keys:   page,
		Cursor: page[len(page)-1],
	}
}

// namespaceKey joins a namespace and a key.
func namespaceKey(namespace, key string) string {
	return namespace + "/" + key
}

// stripNamespace removes the namespace part from a stored key.
func stripNamespace(namespace, key string) string {
	return strings.TrimPrefix(key, namespace+"/")
}
