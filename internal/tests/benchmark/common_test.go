package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/storage"
	"github.com/yndnr/pagegate-go/pkg/token"
)

// SessionCounts for quick benchmarks. The reverse scan is linear in these.
var SessionCounts = []int{100, 1000, 10000}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// gate is the service layer over one pair of stores.
type gate struct {
	sessions storage.Store
	tokens   storage.Store
	users    *service.Realm[*domain.Session]
	resolver *service.ExpiryResolver
	registry *service.TokenService
}

func newGate(b *testing.B, sessions, tokens storage.Store, indexed bool) *gate {
	b.Helper()
	users := service.NewUserRealm(sessions, service.RealmConfig{})
	resolver := service.NewExpiryResolver(users, sessions, indexed)
	return &gate{
		sessions: sessions,
		tokens:   tokens,
		users:    users,
		resolver: resolver,
		registry: service.NewTokenService(tokens, resolver),
	}
}

func (g *gate) exchange(b *testing.B, mode service.RedeemMode) *service.ExchangeService {
	b.Helper()
	ex, err := service.NewExchangeService(g.tokens, g.users, g.resolver, mode)
	if err != nil {
		b.Fatalf("NewExchangeService() error = %v", err)
	}
	return ex
}

// newKeys creates count tokens and returns their keys.
func (g *gate) newKeys(ctx context.Context, b *testing.B, count int) []string {
	b.Helper()
	keys := make([]string, count)
	for i := range keys {
		key, err := token.Generate(fmt.Sprintf("bench%06d-", i))
		if err != nil {
			b.Fatal(err)
		}
		if _, err := g.registry.Create(ctx, &service.CreateTokenRequest{Key: key, ExpiresInMinutes: 60}); err != nil {
			b.Fatalf("Create() error = %v", err)
		}
		keys[i] = key
	}
	return keys
}

// redeemAll redeems every key, filling the session namespace.
func (g *gate) redeemAll(ctx context.Context, b *testing.B, ex *service.ExchangeService, keys []string) {
	b.Helper()
	for _, key := range keys {
		if _, err := ex.Redeem(ctx, key); err != nil {
			b.Fatalf("Redeem(%q) error = %v", key, err)
		}
	}
}

// reportMemory reports heap usage after a forced GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// runWithSessionCounts runs benchFn once per entry of counts.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
