package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/storage"
)

// Listing bounds for TokenService.List.
const (
	DefaultListLimit = 100
	MaxListLimit     = 200
)

// TokenService manages the invitation token registry.
//
// Tokens are stored in their own namespace keyed by the token string.
// Updates are plain read-modify-write sequences.
type TokenService struct {
	tokens   storage.Store
	resolver *ExpiryResolver
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokens storage.Store, resolver *ExpiryResolver) *TokenService {
	return &TokenService{
		tokens:   tokens,
		resolver: resolver,
	}
}

// TokenView is the admin-facing projection of a token.
type TokenView struct {
	Key         string `json:"key"`
	Active      bool   `json:"active"`
	Used        bool   `json:"used"`
	ExpiresAt   *int64 `json:"expiresAt"`
	ExpiresInMs *int64 `json:"expiresInMs"`
}

func newTokenView(key string, t *domain.Token, expiresAt *int64) TokenView {
	v := TokenView{Key: key, ExpiresAt: expiresAt}
	if t == nil {
		return v
	}
	v.Active = t.IsActive()
	v.Used = t.IsUsed()
	if ms := t.ExpiresIn(); ms > 0 {
		v.ExpiresInMs = &ms
	}
	return v
}

// ============================================================================
// Create
// ============================================================================

// CreateTokenRequest contains parameters for token creation.
type CreateTokenRequest struct {
	Key string

	// Active defaults to true when nil.
	Active *bool

	// ExpiresInMinutes takes precedence over ExpiresInDays when positive.
	// Non-positive values are ignored.
	ExpiresInMinutes float64
	ExpiresInDays    float64
}

// Create registers a new unused token.
func (s *TokenService) Create(ctx context.Context, req *CreateTokenRequest) (*TokenView, error) {
	key, err := domain.NormalizeTokenKey(req.Key)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	exists, err := s.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}

	var expiresIn int64
	switch {
	case req.ExpiresInMinutes > 0:
		expiresIn = domain.MinutesToMillis(req.ExpiresInMinutes)
	case req.ExpiresInDays > 0:
		expiresIn = domain.DaysToMillis(req.ExpiresInDays)
	}

	t := domain.NewToken(active, expiresIn)
	if err := s.put(ctx, key, t); err != nil {
		return nil, err
	}

	view := newTokenView(key, t, nil)
	return &view, nil
}

// ============================================================================
// List
// ============================================================================

// ListTokensRequest selects a page of tokens.
type ListTokensRequest struct {
	Prefix string

	// Limit below 1 means DefaultListLimit. Values above MaxListLimit are
	// capped.
	Limit  int
	Cursor string
}

// ListTokensResponse is one page of tokens.
type ListTokensResponse struct {
	Items    []TokenView
	Complete bool
	Cursor   string
}

// List returns a page of tokens with their redemption state. Entries whose
// payload is missing or malformed are reported inactive and unused.
func (s *TokenService) List(ctx context.Context, req *ListTokensRequest) (*ListTokensResponse, error) {
	limit := req.Limit
	if limit < 1 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	page, err := s.tokens.List(ctx, storage.ListOptions{
		Prefix: req.Prefix,
		Limit:  limit,
		Cursor: req.Cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	tokens := make([]*domain.Token, len(page.Keys))
	var used []string
	for i, key := range page.Keys {
		t, err := s.get(ctx, key)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		tokens[i] = t
		if t != nil && t.IsUsed() {
			used = append(used, key)
		}
	}

	expiries, err := s.resolver.ResolveAll(ctx, used)
	if err != nil {
		return nil, err
	}

	items := make([]TokenView, 0, len(page.Keys))
	for i, key := range page.Keys {
		items = append(items, newTokenView(key, tokens[i], expiries[key]))
	}

	return &ListTokensResponse{
		Items:    items,
		Complete: page.Complete,
		Cursor:   page.Cursor,
	}, nil
}

// ============================================================================
// Update
// ============================================================================

// ExpiryChange describes an expiry update. Clear removes the stored
// duration; otherwise Millis replaces it.
type ExpiryChange struct {
	Clear  bool
	Millis int64
}

// UpdateTokenRequest contains a partial token update. Nil fields are left
// unchanged.
type UpdateTokenRequest struct {
	Key    string
	Active *bool
	Used   *bool
	Expiry *ExpiryChange
}

// Update applies a partial update to an existing token.
func (s *TokenService) Update(ctx context.Context, req *UpdateTokenRequest) (*TokenView, error) {
	if req.Key == "" {
		return nil, domain.ErrKeyRequired
	}

	t, err := s.get(ctx, req.Key)
	if err != nil {
		return nil, err
	}

	updated := t.Clone()
	if req.Active != nil {
		updated.SetActive(*req.Active)
	}
	if req.Used != nil {
		updated.SetUsed(*req.Used)
	}
	if req.Expiry != nil {
		if req.Expiry.Clear {
			updated.SetExpiresIn(0)
		} else if req.Expiry.Millis > 0 {
			updated.SetExpiresIn(req.Expiry.Millis)
		}
	}

	if err := s.put(ctx, req.Key, updated); err != nil {
		return nil, err
	}

	var expiresAt *int64
	if updated.IsUsed() {
		expiresAt, err = s.resolver.ExpiresAt(ctx, req.Key)
		if err != nil {
			return nil, err
		}
	}

	view := newTokenView(req.Key, updated, expiresAt)
	return &view, nil
}

// ============================================================================
// Delete
// ============================================================================

// Delete removes a token. Sessions already created from it are kept.
func (s *TokenService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrKeyRequired
	}

	exists, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := s.tokens.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// ============================================================================
// Store helpers
// ============================================================================

// Get loads a token. Missing and malformed entries both yield
// domain.ErrNotFound.
func (s *TokenService) Get(ctx context.Context, key string) (*domain.Token, error) {
	return s.get(ctx, key)
}

func (s *TokenService) get(ctx context.Context, key string) (*domain.Token, error) {
	data, err := s.tokens.Get(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	t, err := domain.DecodeToken(data)
	if err != nil {
		return nil, domain.ErrNotFound.WithCause(err)
	}
	return t, nil
}

// exists reports whether any value, well-formed or not, is stored under key.
func (s *TokenService) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.tokens.Get(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get token: %w", err)
	}
	return true, nil
}

func (s *TokenService) put(ctx context.Context, key string, t *domain.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := s.tokens.Put(ctx, key, data, 0); err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}
