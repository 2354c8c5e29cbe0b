package benchmark

import (
	"context"
	"testing"

	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/storage"
)

// BenchmarkRedeem measures token redemption in both modes. Tokens are
// created outside the timer.
func BenchmarkRedeem(b *testing.B) {
	for _, mode := range []service.RedeemMode{service.RedeemRace, service.RedeemStrict} {
		b.Run(string(mode), func(b *testing.B) {
			ctx := context.Background()
			g := newGate(b, storage.NewMemoryStore(), storage.NewMemoryStore(), false)
			ex := g.exchange(b, mode)

			b.StopTimer()
			keys := g.newKeys(ctx, b, b.N)
			b.StartTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := ex.Redeem(ctx, keys[i]); err != nil {
					b.Fatalf("Redeem() error = %v", err)
				}
			}

			b.StopTimer()
			reportMemory(b, "mem")
		})
	}
}

// BenchmarkSessionLookup measures the guard's per-request read and renew.
func BenchmarkSessionLookup(b *testing.B) {
	runWithSessionCounts(b, SessionCounts, func(b *testing.B, count int) {
		ctx := context.Background()
		g := newGate(b, storage.NewMemoryStore(), storage.NewMemoryStore(), false)
		ex := g.exchange(b, service.RedeemRace)
		keys := g.newKeys(ctx, b, count)

		sids := make([]string, 0, count)
		for _, key := range keys {
			resp, err := ex.Redeem(ctx, key)
			if err != nil {
				b.Fatal(err)
			}
			sids = append(sids, resp.SessionID)
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			sid := sids[i%len(sids)]
			sess, err := g.users.Lookup(ctx, sid)
			if err != nil {
				b.Fatalf("Lookup() error = %v", err)
			}
			if err := g.users.Renew(ctx, sid, sess); err != nil {
				b.Fatalf("Renew() error = %v", err)
			}
		}
	})
}
