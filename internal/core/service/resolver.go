package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/storage"
)

// DefaultIndexPrefix prefixes token → session id back-references.
const DefaultIndexPrefix = "tokidx:"

// ExpiryResolver finds the absolute expiry of the session created from a
// token. With an index enabled it follows the token's back-reference and
// falls back to a scan of user sessions when the reference is missing or
// stale.
type ExpiryResolver struct {
	sessions    *Realm[*domain.Session]
	store       storage.Store
	indexPrefix string
	indexed     bool
}

// NewExpiryResolver creates a resolver over the user session realm.
// store is the namespace holding the index entries; pass indexed=false
// to always scan.
func NewExpiryResolver(sessions *Realm[*domain.Session], store storage.Store, indexed bool) *ExpiryResolver {
	return &ExpiryResolver{
		sessions:    sessions,
		store:       store,
		indexPrefix: DefaultIndexPrefix,
		indexed:     indexed,
	}
}

// Indexed reports whether back-references are written and read.
func (r *ExpiryResolver) Indexed() bool {
	return r.indexed
}

// Link records that token was redeemed into session sid.
func (r *ExpiryResolver) Link(ctx context.Context, token, sid string) error {
	if !r.indexed {
		return nil
	}
	if err := r.store.Put(ctx, r.indexPrefix+token, []byte(sid), r.sessions.TTL()); err != nil {
		return fmt.Errorf("link token index: %w", err)
	}
	return nil
}

// Unlink drops the back-reference for token.
func (r *ExpiryResolver) Unlink(ctx context.Context, token string) error {
	if !r.indexed {
		return nil
	}
	if err := r.store.Delete(ctx, r.indexPrefix+token); err != nil {
		return fmt.Errorf("unlink token index: %w", err)
	}
	return nil
}

// ExpiresAt returns the absolute expiry of a session redeemed from token,
// or nil when no such session carries one.
func (r *ExpiryResolver) ExpiresAt(ctx context.Context, token string) (*int64, error) {
	found, err := r.ResolveAll(ctx, []string{token})
	if err != nil {
		return nil, err
	}
	return found[token], nil
}

// ResolveAll resolves several tokens at once. Tokens that the index cannot
// answer share a single scan of the user sessions. Tokens without an
// expiring session are absent from the result.
func (r *ExpiryResolver) ResolveAll(ctx context.Context, tokens []string) (map[string]*int64, error) {
	found := make(map[string]*int64, len(tokens))
	pending := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if r.indexed {
			at, ok, err := r.lookupIndex(ctx, token)
			if err != nil {
				return nil, err
			}
			if ok {
				found[token] = at
				continue
			}
		}
		pending[token] = true
	}
	if len(pending) == 0 {
		return found, nil
	}

	err := r.sessions.Scan(ctx, func(_ string, s *domain.Session) bool {
		if pending[s.Token] && s.ExpiresAt != nil {
			at := *s.ExpiresAt
			found[s.Token] = &at
			delete(pending, s.Token)
		}
		return len(pending) > 0
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// lookupIndex follows the back-reference. ok is false when the caller
// should fall back to scanning.
func (r *ExpiryResolver) lookupIndex(ctx context.Context, token string) (*int64, bool, error) {
	data, err := r.store.Get(ctx, r.indexPrefix+token)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get token index: %w", err)
	}

	s, err := r.sessions.Lookup(ctx, string(data))
	if errors.Is(err, ErrSessionNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.Token != token || s.ExpiresAt == nil {
		return nil, false, nil
	}
	at := *s.ExpiresAt
	return &at, true, nil
}
