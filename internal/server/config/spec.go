package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// ServerConfig is the root configuration for pagegate-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Guard    GuardSection    `koanf:"guard"`
	Session  SessionSection  `koanf:"session"`
	Tokens   TokensSection   `koanf:"tokens"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	TLSCertFile       string        `koanf:"tls_cert_file"`
	TLSKeyFile        string        `koanf:"tls_key_file"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`

	// RateLimit is requests per second per client IP. 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// ClientIPHeaders are consulted in order before the socket address,
	// but only for connections from TrustedProxies.
	ClientIPHeaders []string `koanf:"client_ip_headers"`

	// TrustedProxies lists the CIDRs or addresses of reverse proxies
	// allowed to set ClientIPHeaders. Empty means the socket address is
	// always the client address.
	TrustedProxies []string `koanf:"trusted_proxies"`

	MetricsEnabled bool `koanf:"metrics_enabled"`

	// SiteRoot is the static directory served behind the guard.
	// Empty answers 404 for every path no endpoint claims.
	SiteRoot string `koanf:"site_root"`
}

// StorageSection configures the key-value backend.
type StorageSection struct {
	// Backend is one of memory, badger, redis.
	Backend        string        `koanf:"backend"`
	DataDir        string        `koanf:"data_dir"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	Badger BadgerSection `koanf:"badger"`
	Redis  RedisSection  `koanf:"redis"`
}

// BadgerSection tunes the Badger backend.
type BadgerSection struct {
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// RedisSection configures the Redis backend.
type RedisSection struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// SecuritySection configures credentials and cookie transport.
type SecuritySection struct {
	// AdminSecret is the operator password, in plaintext or as an
	// $argon2id$ PHC string. Empty disables admin login.
	AdminSecret string `koanf:"admin_secret"`

	// CookieSecure adds the Secure attribute to session cookies.
	CookieSecure bool `koanf:"cookie_secure"`
}

// GuardSection is the access guard path policy.
type GuardSection struct {
	PublicPaths    []string `koanf:"public_paths"`
	StaticPrefixes []string `koanf:"static_prefixes"`
	ProtectedPages []string `koanf:"protected_pages"`
	AdminPrefixes  []string `koanf:"admin_prefixes"`
	APIPrefix      string   `koanf:"api_prefix"`
	LoginPage      string   `koanf:"login_page"`
	HomePage       string   `koanf:"home_page"`
	AdminLanding   string   `koanf:"admin_landing"`
	AdminDashboard string   `koanf:"admin_dashboard"`
	AdminLoginPath string   `koanf:"admin_login_path"`
}

// SessionSection configures cookies and session keys.
type SessionSection struct {
	UserCookie string `koanf:"user_cookie"`

	// UserMaxAge is the sid cookie Max-Age in seconds.
	UserMaxAge int `koanf:"user_max_age"`

	AdminCookie string `koanf:"admin_cookie"`

	// AdminTTL is both the admin session store TTL and the admin_sid
	// cookie Max-Age, in seconds.
	AdminTTL int `koanf:"admin_ttl"`

	UserKeyPrefix  string `koanf:"user_key_prefix"`
	AdminKeyPrefix string `koanf:"admin_key_prefix"`
}

// TokensSection configures redemption.
type TokensSection struct {
	// RedeemMode is race or strict.
	RedeemMode string `koanf:"redeem_mode"`

	// SessionIndex writes a token to session back-reference on redemption.
	SessionIndex bool `koanf:"session_index"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AdminTTLDuration returns Session.AdminTTL as a duration.
func (c *ServerConfig) AdminTTLDuration() time.Duration {
	return time.Duration(c.Session.AdminTTL) * time.Second
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a
// single-host prefix.
func (h HTTPConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, s := range h.TrustedProxies {
		s = strings.TrimSpace(s)
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("server.http.trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("server.http.trusted_proxies: %w", err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
