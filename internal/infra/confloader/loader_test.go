package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr            string        `koanf:"addr"`
			ReadTimeout     time.Duration `koanf:"read_header_timeout"`
			RateLimit       float64       `koanf:"rate_limit"`
			ClientIPHeaders []string      `koanf:"client_ip_headers"`
		} `koanf:"http"`
	} `koanf:"server"`
	Security struct {
		AdminSecret  string `koanf:"admin_secret"`
		CookieSecure bool   `koanf:"cookie_secure"`
	} `koanf:"security"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" || l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("options not applied: prefix %q file %q", l.envPrefix, l.FilePath())
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"PAGEGATE_SERVER__HTTP__ADDR", "server.http.addr"},
		{"PAGEGATE_SECURITY__ADMIN_SECRET", "security.admin_secret"},
		{"PAGEGATE_LOG__LEVEL", "log.level"},
		{"PAGEGATE_DEBUG", "debug"},
		{"PAGEGATE_", ""},
		{"PAGEGATE_SERVER____ADDR", ""},
	}
	for _, tt := range tests {
		if got := EnvKey("PAGEGATE_", tt.name); got != tt.want {
			t.Errorf("EnvKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "0.0.0.0:8080"
    read_header_timeout: 3s
    client_ip_headers: [X-Real-IP]
security:
  cookie_secure: false
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Server.HTTP.Addr)
	}
	if cfg.Server.HTTP.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", cfg.Server.HTTP.ReadTimeout)
	}
	if len(cfg.Server.HTTP.ClientIPHeaders) != 1 || cfg.Server.HTTP.ClientIPHeaders[0] != "X-Real-IP" {
		t.Errorf("ClientIPHeaders = %v", cfg.Server.HTTP.ClientIPHeaders)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	if err := NewLoader().LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
	if err := NewLoader().LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
	var cfg testConfig
	if err := NewLoader(WithConfigFile(writeConfig(t, "server: [unclosed"))).Load(&cfg); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestLoader_DefaultsSurvive(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	var cfg testConfig
	cfg.Server.HTTP.Addr = "127.0.0.1:8080"
	cfg.Security.CookieSecure = true
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "127.0.0.1:8080" || !cfg.Security.CookieSecure {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "from-file:1"
log:
  level: warn
`)
	t.Setenv("PAGEGATE_SERVER__HTTP__ADDR", "from-env:2")
	t.Setenv("PAGEGATE_SERVER__HTTP__RATE_LIMIT", "2.5")
	t.Setenv("PAGEGATE_SERVER__HTTP__CLIENT_IP_HEADERS", "CF-Connecting-IP, X-Forwarded-For")

	l := NewLoader(
		WithConfigFile(path),
		WithListKeys("server.http.client_ip_headers"),
		WithOverrides(map[string]any{"log.level": "error"}),
	)
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "from-env:2" {
		t.Errorf("Addr = %q, env should override file", cfg.Server.HTTP.Addr)
	}
	if cfg.Server.HTTP.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.Server.HTTP.RateLimit)
	}
	if got := cfg.Server.HTTP.ClientIPHeaders; len(got) != 2 || got[1] != "X-Forwarded-For" {
		t.Errorf("ClientIPHeaders = %v", got)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Level = %q, overrides should win", cfg.Log.Level)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() = false after Load()")
	}
}

func TestLoader_EnvFallback(t *testing.T) {
	t.Run("used when unset", func(t *testing.T) {
		t.Setenv("ADMIN_SECRET", "from-fallback")

		var cfg testConfig
		if err := NewLoader(WithEnvFallback("security.admin_secret", "ADMIN_SECRET")).Load(&cfg); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Security.AdminSecret != "from-fallback" {
			t.Errorf("AdminSecret = %q", cfg.Security.AdminSecret)
		}
	})

	t.Run("prefixed variable wins", func(t *testing.T) {
		t.Setenv("ADMIN_SECRET", "from-fallback")
		t.Setenv("PAGEGATE_SECURITY__ADMIN_SECRET", "from-prefixed")

		var cfg testConfig
		if err := NewLoader(WithEnvFallback("security.admin_secret", "ADMIN_SECRET")).Load(&cfg); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Security.AdminSecret != "from-prefixed" {
			t.Errorf("AdminSecret = %q", cfg.Security.AdminSecret)
		}
	})

	t.Run("file wins", func(t *testing.T) {
		t.Setenv("ADMIN_SECRET", "from-fallback")
		path := writeConfig(t, "security:\n  admin_secret: from-file\n")

		var cfg testConfig
		l := NewLoader(WithConfigFile(path), WithEnvFallback("security.admin_secret", "ADMIN_SECRET"))
		if err := l.Load(&cfg); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Security.AdminSecret != "from-file" {
			t.Errorf("AdminSecret = %q", cfg.Security.AdminSecret)
		}
	})
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"server.http.addr": "localhost:3000"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "localhost:3000" {
		t.Errorf("Addr = %q, dotted keys should nest", cfg.Server.HTTP.Addr)
	}
	if len(l.Keys()) != 1 {
		t.Errorf("Keys() = %v", l.Keys())
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	l := NewLoader(WithConfigFile(path))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fresh, err := l.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := fresh.GetString("log.level"); got != "debug" {
		t.Errorf("reloaded level = %q, want debug", got)
	}
	if got := l.GetString("log.level"); got != "info" {
		t.Errorf("original level = %q, want info", got)
	}
}
