package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/infra/buildinfo"
	"github.com/yndnr/pagegate-go/internal/infra/certreload"
	"github.com/yndnr/pagegate-go/internal/infra/confloader"
	"github.com/yndnr/pagegate-go/internal/infra/shutdown"
	"github.com/yndnr/pagegate-go/internal/server/config"
	"github.com/yndnr/pagegate-go/internal/server/httpserver"
	"github.com/yndnr/pagegate-go/internal/server/httpserver/cookie"
	"github.com/yndnr/pagegate-go/internal/server/httpserver/handler"
	"github.com/yndnr/pagegate-go/internal/storage"
	"github.com/yndnr/pagegate-go/internal/telemetry/logger"
	"github.com/yndnr/pagegate-go/internal/telemetry/metric"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "Listen address (overrides server.http.addr)")
		logLevel    = flag.String("log-level", "", "Log level (overrides log.level)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("pagegate-server " + buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *addr != "" {
		overrides["server.http.addr"] = *addr
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}

	cfg, loader, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting pagegate-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx := context.Background()
	metrics := metric.NewRegistry()

	stores, err := storage.Open(ctx, storageConfig(cfg), log, metrics.Registerer())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	svc, err := initServices(cfg, stores)
	if err != nil {
		_ = stores.Close()
		return fmt.Errorf("init services: %w", err)
	}
	if !svc.secret.Configured() {
		log.Warn("security.admin_secret is empty; admin login is disabled")
	}

	guardCfg := guardConfig(cfg)
	trusted, err := cfg.Server.HTTP.TrustedProxyPrefixes()
	if err != nil {
		_ = stores.Close()
		return err
	}
	clientIP := httpserver.NewClientIP(cfg.Server.HTTP.ClientIPHeaders, trusted...)

	var site http.Handler
	if cfg.Server.HTTP.SiteRoot != "" {
		site = http.FileServer(http.Dir(cfg.Server.HTTP.SiteRoot))
	}

	h := handler.New(handler.Config{
		Tokens:      svc.tokens,
		Exchange:    svc.exchange,
		Admin:       svc.admin,
		UserCookie:  guardCfg.UserCookie,
		AdminCookie: guardCfg.AdminCookie,
		ClientIP:    clientIP.Resolve,
		Ready:       stores.Ping,
		Site:        site,
		Metrics:     metrics,
		Logger:      log,
	})

	var limiter *httpserver.RateLimiterRegistry
	if cfg.Server.HTTP.RateLimit > 0 {
		limiter = httpserver.NewRateLimiterRegistry(cfg.Server.HTTP.RateLimit, cfg.Server.HTTP.RateBurst)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Handler:        h,
		Guard:          httpserver.NewAccessGuard(guardCfg, svc.users, svc.admins, log, metrics),
		Logger:         log,
		Metrics:        metrics,
		MetricsEnabled: cfg.Server.HTTP.MetricsEnabled,
		ClientIP:       clientIP,
		RateLimiter:    limiter,
		EnableAudit:    true,
	})

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router, cfg.Server.HTTP.ReadHeaderTimeout)

	// Hooks run last-in first-out: the listener stops before storage closes.
	sd := shutdown.NewHandler(shutdownTimeout)
	sd.OnShutdown(func(ctx context.Context) error {
		log.Info("closing storage")
		return stores.Close()
	})
	sd.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	if *configFile != "" {
		stopWatch, err := watchLogLevel(loader, *configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			sd.OnShutdown(func(context.Context) error { return stopWatch() })
		}
	}

	var certs *certreload.Reloader
	if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
		certs, err = certreload.New(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, certreload.WithLogger(log))
		if err != nil {
			_ = stores.Close()
			return err
		}
		if err := certs.Watch(); err != nil {
			log.Warn("certificate hot reload disabled", "error", err)
		}
		sd.OnShutdown(func(context.Context) error { return certs.Stop() })
	}

	// A listener failure triggers the same shutdown path as a signal.
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "backend", cfg.Storage.Backend)

		var err error
		if certs != nil {
			err = httpServer.ListenAndServeTLS(certs.GetCertificate)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	if err := sd.Wait(waitCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	select {
	case err := <-serveErr:
		return err
	default:
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the optional file, PAGEGATE_ environment
// variables and command-line overrides.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{
		confloader.WithListKeys(
			"server.http.client_ip_headers",
			"server.http.trusted_proxies",
			"guard.public_paths",
			"guard.static_prefixes",
			"guard.protected_pages",
			"guard.admin_prefixes",
		),
		confloader.WithEnvFallback("security.admin_secret", "ADMIN_SECRET"),
		confloader.WithOverrides(overrides),
	}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func storageConfig(cfg *config.ServerConfig) storage.Config {
	sc := storage.DefaultConfig()
	sc.Backend = cfg.Storage.Backend
	sc.Dir = cfg.Storage.DataDir
	sc.RequestTimeout = cfg.Storage.RequestTimeout
	sc.Badger.GCInterval = cfg.Storage.Badger.GCInterval
	sc.Badger.GCThreshold = cfg.Storage.Badger.GCThreshold
	sc.Badger.SyncWrites = cfg.Storage.Badger.SyncWrites
	sc.Redis = storage.RedisConfig{
		Addr:      cfg.Storage.Redis.Addr,
		Password:  cfg.Storage.Redis.Password,
		DB:        cfg.Storage.Redis.DB,
		KeyPrefix: cfg.Storage.Redis.KeyPrefix,
	}
	return sc
}

func guardConfig(cfg *config.ServerConfig) httpserver.GuardConfig {
	g := cfg.Guard
	return httpserver.GuardConfig{
		PublicPaths:    g.PublicPaths,
		StaticPrefixes: g.StaticPrefixes,
		ProtectedPages: g.ProtectedPages,
		AdminPrefixes:  g.AdminPrefixes,
		APIPrefix:      g.APIPrefix,
		LoginPage:      g.LoginPage,
		HomePage:       g.HomePage,
		AdminLanding:   g.AdminLanding,
		AdminDashboard: g.AdminDashboard,
		AdminLoginPath: g.AdminLoginPath,
		UserCookie: cookie.Spec{
			Name:   cfg.Session.UserCookie,
			MaxAge: cfg.Session.UserMaxAge,
			Secure: cfg.Security.CookieSecure,
		},
		AdminCookie: cookie.Spec{
			Name:   cfg.Session.AdminCookie,
			MaxAge: cfg.Session.AdminTTL,
			Secure: cfg.Security.CookieSecure,
		},
	}
}

type services struct {
	users    *service.Realm[*domain.Session]
	admins   *service.Realm[*domain.AdminSession]
	secret   *service.AdminSecret
	tokens   *service.TokenService
	exchange *service.ExchangeService
	admin    *service.AdminAuthService
}

func initServices(cfg *config.ServerConfig, stores *storage.Stores) (*services, error) {
	users := service.NewUserRealm(stores.Sessions, service.RealmConfig{
		KeyPrefix: cfg.Session.UserKeyPrefix,
	})
	admins := service.NewAdminRealm(stores.Sessions, service.RealmConfig{
		KeyPrefix: cfg.Session.AdminKeyPrefix,
		TTL:       cfg.AdminTTLDuration(),
	})

	resolver := service.NewExpiryResolver(users, stores.Sessions, cfg.Tokens.SessionIndex)
	exchange, err := service.NewExchangeService(stores.Tokens, users, resolver, service.RedeemMode(cfg.Tokens.RedeemMode))
	if err != nil {
		return nil, err
	}

	secret := service.NewAdminSecret(cfg.Security.AdminSecret)
	return &services{
		users:    users,
		admins:   admins,
		secret:   secret,
		tokens:   service.NewTokenService(stores.Tokens, resolver),
		exchange: exchange,
		admin:    service.NewAdminAuthService(secret, admins),
	}, nil
}

// watchLogLevel re-reads configFile on change and applies log.level.
func watchLogLevel(loader *confloader.Loader, configFile string, log *slog.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(configFile); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(confloader.KeyReloader(loader, "log.level", logger.SetLevel, log))
	w.StartAsync()
	return w.Stop, nil
}
