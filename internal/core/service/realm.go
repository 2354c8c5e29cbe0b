package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/storage"
)

// Default realm settings.
const (
	DefaultUserKeyPrefix  = "sess:"
	DefaultAdminKeyPrefix = "admin:"
	DefaultAdminTTL       = 24 * time.Hour
)

// ErrSessionNotFound is returned by Realm.Lookup when the session id is
// empty, unknown, expired at the store level, or holds a malformed record.
var ErrSessionNotFound = errors.New("session not found")

// scanPageSize bounds the keys fetched per List call during Scan.
const scanPageSize = 500

// Record is a session payload managed by a Realm.
type Record interface {
	// Touch records activity at now (epoch milliseconds).
	Touch(now int64)

	// Expired reports whether the record is past its own expiry at now.
	Expired(now int64) bool
}

// RealmConfig configures a Realm.
type RealmConfig struct {
	// Name identifies the realm in logs and metrics ("user", "admin").
	Name string

	// KeyPrefix is prepended to session ids to form store keys.
	KeyPrefix string

	// TTL is applied on every write. Zero means no store-level expiry.
	TTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// NewID generates session ids. Defaults to uuid.NewString.
	NewID func() string
}

// Realm stores one kind of cookie session under a key prefix.
type Realm[T Record] struct {
	store  storage.Store
	cfg    RealmConfig
	decode func([]byte) (T, error)
}

// NewRealm creates a Realm over store. decode must reject malformed
// payloads with an error.
func NewRealm[T Record](store storage.Store, cfg RealmConfig, decode func([]byte) (T, error)) *Realm[T] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Realm[T]{
		store:  store,
		cfg:    cfg,
		decode: decode,
	}
}

// NewUserRealm creates the realm for token-redeemed user sessions.
func NewUserRealm(store storage.Store, cfg RealmConfig) *Realm[*domain.Session] {
	if cfg.Name == "" {
		cfg.Name = "user"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultUserKeyPrefix
	}
	return NewRealm(store, cfg, domain.DecodeSession)
}

// NewAdminRealm creates the realm for operator sessions.
func NewAdminRealm(store storage.Store, cfg RealmConfig) *Realm[*domain.AdminSession] {
	if cfg.Name == "" {
		cfg.Name = "admin"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultAdminKeyPrefix
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultAdminTTL
	}
	return NewRealm(store, cfg, domain.DecodeAdminSession)
}

// Name returns the realm name.
func (r *Realm[T]) Name() string {
	return r.cfg.Name
}

// TTL returns the store-level lifetime applied on writes.
func (r *Realm[T]) TTL() time.Duration {
	return r.cfg.TTL
}

// Now returns the current time in epoch milliseconds.
func (r *Realm[T]) Now() int64 {
	return r.cfg.Now().UnixMilli()
}

// Key returns the store key for sid.
func (r *Realm[T]) Key(sid string) string {
	return r.cfg.KeyPrefix + sid
}

// Create stores rec under a fresh session id and returns the id.
func (r *Realm[T]) Create(ctx context.Context, rec T) (string, error) {
	sid := r.cfg.NewID()
	if err := r.put(ctx, sid, rec); err != nil {
		return "", err
	}
	return sid, nil
}

// Lookup loads the session for sid.
func (r *Realm[T]) Lookup(ctx context.Context, sid string) (T, error) {
	var zero T
	if sid == "" {
		return zero, ErrSessionNotFound
	}
	data, err := r.store.Get(ctx, r.Key(sid))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return zero, ErrSessionNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("%s realm: get session: %w", r.cfg.Name, err)
	}
	rec, err := r.decode(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return rec, nil
}

// Renew touches rec and writes it back, restarting the realm TTL.
func (r *Realm[T]) Renew(ctx context.Context, sid string, rec T) error {
	rec.Touch(r.Now())
	return r.put(ctx, sid, rec)
}

// Delete removes the session for sid. Unknown ids are not an error.
func (r *Realm[T]) Delete(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := r.store.Delete(ctx, r.Key(sid)); err != nil {
		return fmt.Errorf("%s realm: delete session: %w", r.cfg.Name, err)
	}
	return nil
}

// Scan calls fn for every well-formed session in the realm. Malformed
// records are skipped. Returning false from fn stops the scan.
func (r *Realm[T]) Scan(ctx context.Context, fn func(sid string, rec T) bool) error {
	opts := storage.ListOptions{Prefix: r.cfg.KeyPrefix, Limit: scanPageSize}
	for {
		page, err := r.store.List(ctx, opts)
		if err != nil {
			return fmt.Errorf("%s realm: list sessions: %w", r.cfg.Name, err)
		}
		for _, key := range page.Keys {
			data, err := r.store.Get(ctx, key)
			if errors.Is(err, storage.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%s realm: get session: %w", r.cfg.Name, err)
			}
			rec, err := r.decode(data)
			if err != nil {
				continue
			}
			if !fn(strings.TrimPrefix(key, r.cfg.KeyPrefix), rec) {
				return nil
			}
		}
		if page.Complete {
			return nil
		}
		opts.Cursor = page.Cursor
	}
}

func (r *Realm[T]) put(ctx context.Context, sid string, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s realm: encode session: %w", r.cfg.Name, err)
	}
	if err := r.store.Put(ctx, r.Key(sid), data, r.cfg.TTL); err != nil {
		return fmt.Errorf("%s realm: put session: %w", r.cfg.Name, err)
	}
	return nil
}
