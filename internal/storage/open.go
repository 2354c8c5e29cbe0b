package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Stores bundles the two logical namespaces opened on one backend.
type Stores struct {
	Sessions Store
	Tokens   Store

	ping  func(context.Context) error
	close func() error
}

// Ping checks the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open creates the SESSIONS and TOKENS stores for cfg.Backend.
// registry may be nil.
func Open(ctx context.Context, cfg Config, logger *slog.Logger, registry prometheus.Registerer) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "", BackendMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		return &Stores{
			Sessions: NewMemoryStore(),
			Tokens:   NewMemoryStore(),
		}, nil

	case BackendBadger:
		engine, err := NewBadgerEngine(cfg.Dir, cfg.Badger, logger)
		if err != nil {
			return nil, err
		}
		if registry != nil {
			engine.RegisterMetrics(registry)
		}
		return &Stores{
			Sessions: engine.Namespace(NamespaceSessions),
			Tokens:   engine.Namespace(NamespaceTokens),
			ping:     engine.Ping,
			close:    engine.Close,
		}, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		})
		sessions := NewRedisStore(client, cfg.Redis.KeyPrefix, NamespaceSessions)
		if err := sessions.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis: ping %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("redis storage connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return &Stores{
			Sessions: sessions,
			Tokens:   NewRedisStore(client, cfg.Redis.KeyPrefix, NamespaceTokens),
			ping:     sessions.Ping,
			close:    client.Close,
		}, nil

	default:
		return nil, errors.New("storage: unknown backend " + cfg.Backend)
	}
}
