package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/pagegate-go/internal/telemetry/logger"
)

// Verify validates the configuration and returns the first violation.
func Verify(cfg *ServerConfig) error {
	checks := []func(*ServerConfig) error{
		verifyHTTP,
		verifyStorage,
		verifyGuard,
		verifySession,
		verifyTokens,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func verifyHTTP(cfg *ServerConfig) error {
	h := &cfg.Server.HTTP
	if h.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if _, _, err := net.SplitHostPort(h.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (h.TLSCertFile == "") != (h.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if _, err := h.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if h.RateLimit < 0 || h.RateBurst < 0 {
		return errors.New("server.http.rate_limit and rate_burst must not be negative")
	}
	if h.SiteRoot != "" {
		info, err := os.Stat(h.SiteRoot)
		if err != nil {
			return fmt.Errorf("server.http.site_root: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("server.http.site_root %q is not a directory", h.SiteRoot)
		}
	}
	return nil
}

func verifyStorage(cfg *ServerConfig) error {
	s := &cfg.Storage
	switch s.Backend {
	case "memory":
	case "badger":
		if s.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if err := os.MkdirAll(s.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		if s.Badger.GCThreshold <= 0 || s.Badger.GCThreshold >= 1 {
			return errors.New("storage.badger.gc_threshold must be between 0 and 1")
		}
	case "redis":
		if s.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis backend")
		}
		if s.Redis.DB < 0 {
			return errors.New("storage.redis.db must not be negative")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, badger, redis", s.Backend)
	}
	return nil
}

func verifyGuard(cfg *ServerConfig) error {
	g := &cfg.Guard
	paths := []struct{ name, value string }{
		{"guard.api_prefix", g.APIPrefix},
		{"guard.login_page", g.LoginPage},
		{"guard.home_page", g.HomePage},
		{"guard.admin_landing", g.AdminLanding},
		{"guard.admin_dashboard", g.AdminDashboard},
		{"guard.admin_login_path", g.AdminLoginPath},
	}
	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			return fmt.Errorf("%s must start with /", p.name)
		}
	}
	if len(g.AdminPrefixes) == 0 {
		return errors.New("guard.admin_prefixes must not be empty")
	}
	for _, p := range g.AdminPrefixes {
		if p == "" {
			return errors.New("guard.admin_prefixes must not contain an empty prefix")
		}
	}
	return nil
}

func verifySession(cfg *ServerConfig) error {
	s := &cfg.Session
	if s.UserCookie == "" || s.AdminCookie == "" {
		return errors.New("session.user_cookie and session.admin_cookie are required")
	}
	if s.UserCookie == s.AdminCookie {
		return errors.New("session.user_cookie and session.admin_cookie must differ")
	}
	if s.UserMaxAge <= 0 {
		return errors.New("session.user_max_age must be positive")
	}
	if s.AdminTTL <= 0 {
		return errors.New("session.admin_ttl must be positive")
	}
	if s.UserKeyPrefix == "" || s.AdminKeyPrefix == "" {
		return errors.New("session.user_key_prefix and session.admin_key_prefix are required")
	}
	if strings.HasPrefix(s.UserKeyPrefix, s.AdminKeyPrefix) || strings.HasPrefix(s.AdminKeyPrefix, s.UserKeyPrefix) {
		return errors.New("session.user_key_prefix and session.admin_key_prefix must not overlap")
	}
	return nil
}

func verifyTokens(cfg *ServerConfig) error {
	switch cfg.Tokens.RedeemMode {
	case "race", "strict":
		return nil
	default:
		return fmt.Errorf("tokens.redeem_mode %q is not one of race, strict", cfg.Tokens.RedeemMode)
	}
}

func verifyLog(cfg *ServerConfig) error {
	if !logger.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Log.Format)
	}
}
