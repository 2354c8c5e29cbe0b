package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr          = "127.0.0.1:8080"
	DefaultReadHeaderTimeout = 10 * time.Second

	DefaultStorageBackend = "memory"
	DefaultDataDir        = "/var/lib/pagegate-server/data"
	DefaultRequestTimeout = 5 * time.Second
	DefaultGCInterval     = 10 * time.Minute
	DefaultGCThreshold    = 0.5
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultRedisKeyPrefix = "pagegate:"

	DefaultUserCookie     = "sid"
	DefaultUserMaxAge     = 157680000 // five years
	DefaultAdminCookie    = "admin_sid"
	DefaultAdminTTL       = 86400
	DefaultUserKeyPrefix  = "sess:"
	DefaultAdminKeyPrefix = "admin:"

	DefaultRedeemMode = "race"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultClientIPHeaders are the forwarding headers read from trusted
// proxies. No proxy is trusted by default.
var DefaultClientIPHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:              DefaultHTTPAddr,
				ReadHeaderTimeout: DefaultReadHeaderTimeout,
				ClientIPHeaders:   append([]string(nil), DefaultClientIPHeaders...),
				MetricsEnabled:    true,
			},
		},
		Storage: StorageSection{
			Backend:        DefaultStorageBackend,
			DataDir:        DefaultDataDir,
			RequestTimeout: DefaultRequestTimeout,
			Badger: BadgerSection{
				GCInterval:  DefaultGCInterval,
				GCThreshold: DefaultGCThreshold,
				SyncWrites:  true,
			},
			Redis: RedisSection{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultRedisKeyPrefix,
			},
		},
		Security: SecuritySection{
			CookieSecure: true,
		},
		Guard: GuardSection{
			PublicPaths:    []string{"/", "/index.html", "/login.html"},
			StaticPrefixes: []string{"/assets/", "/assetsdiff/", "/qr_files/", "/scanqr_files/", "/showqr_files/"},
			ProtectedPages: []string{"gen", "card", "home", "qr", "scanqr", "showqr", "services", "more", "moreid", "pesel", "shortcuts"},
			AdminPrefixes:  []string{"/admin", "/api/admin"},
			APIPrefix:      "/api/",
			LoginPage:      "/login.html",
			HomePage:       "/index.html",
			AdminLanding:   "/admin/index.html",
			AdminDashboard: "/admin/dashboard.html",
			AdminLoginPath: "/api/admin/login",
		},
		Session: SessionSection{
			UserCookie:     DefaultUserCookie,
			UserMaxAge:     DefaultUserMaxAge,
			AdminCookie:    DefaultAdminCookie,
			AdminTTL:       DefaultAdminTTL,
			UserKeyPrefix:  DefaultUserKeyPrefix,
			AdminKeyPrefix: DefaultAdminKeyPrefix,
		},
		Tokens: TokensSection{
			RedeemMode: DefaultRedeemMode,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
