package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/storage"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
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

// fixture wires the services over memory stores sharing one clock.
type fixture struct {
	clock    *fakeClock
	tokens   *storage.MemoryStore
	sessions *storage.MemoryStore
	users    *Realm[*domain.Session]
	admins   *Realm[*domain.AdminSession]
	resolver *ExpiryResolver
	registry *TokenService
	exchange *ExchangeService
}

type fixtureOptions struct {
	mode    RedeemMode
	indexed bool
	tokens  storage.Store
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	clock := newFakeClock()
	f := &fixture{
		clock:    clock,
		tokens:   storage.NewMemoryStore(storage.WithClock(clock.Now)),
		sessions: storage.NewMemoryStore(storage.WithClock(clock.Now)),
	}
	var tokens storage.Store = f.tokens
	if opts.tokens != nil {
		tokens = opts.tokens
	}
	f.users = NewUserRealm(f.sessions, RealmConfig{Now: clock.Now})
	f.admins = NewAdminRealm(f.sessions, RealmConfig{Now: clock.Now})
	f.resolver = NewExpiryResolver(f.users, f.sessions, opts.indexed)
	f.registry = NewTokenService(tokens, f.resolver)

	exchange, err := NewExchangeService(tokens, f.users, f.resolver, opts.mode)
	if err != nil {
		t.Fatalf("NewExchangeService() error = %v", err)
	}
	f.exchange = exchange
	return f
}

func (f *fixture) nowMillis() int64 {
	return f.clock.Now().UnixMilli()
}

func (f *fixture) putRaw(t *testing.T, key, value string) {
	t.Helper()
	if err := f.tokens.Put(context.Background(), key, []byte(value), 0); err != nil {
		t.Fatalf("Put(%q) error = %v", key, err)
	}
}

func (f *fixture) createToken(t *testing.T, req *CreateTokenRequest) *TokenView {
	t.Helper()
	view, err := f.registry.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", req.Key, err)
	}
	return view
}

// barrierStore holds the first n token reads until all n have arrived, so
// that concurrent redemptions observe the same unused token.
type barrierStore struct {
	*storage.MemoryStore
	n       int32
	calls   atomic.Int32
	arrived sync.WaitGroup
}

func newBarrierStore(n int) *barrierStore {
	b := &barrierStore{MemoryStore: storage.NewMemoryStore(), n: int32(n)}
	b.arrived.Add(n)
	return b
}

func (b *barrierStore) Get(ctx context.Context, key string) ([]byte, error) {
	if b.calls.Add(1) <= b.n {
		b.arrived.Done()
		b.arrived.Wait()
	}
	return b.MemoryStore.Get(ctx, key)
}

// contendedStore loses every swap without changing the stored value, as if
// another writer touched the token between read and swap each time.
type contendedStore struct {
	*storage.MemoryStore
	swaps atomic.Int32
}

func (c *contendedStore) Swap(context.Context, string, []byte, []byte, time.Duration) (bool, error) {
	c.swaps.Add(1)
	return false, nil
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrUnavailable
}

func (failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return storage.ErrUnavailable
}

func (failingStore) Delete(context.Context, string) error {
	return storage.ErrUnavailable
}

func (failingStore) List(context.Context, storage.ListOptions) (*storage.ListResult, error) {
	return nil, storage.ErrUnavailable
}

func boolPtr(v bool) *bool {
	return &v
}
