package confloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "PAGEGATE_"

// envNestingSeparator separates nesting levels in environment variable
// names, so single underscores stay part of a key.
const envNestingSeparator = "__"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	listKeys  map[string]bool
	fallbacks []envFallback
	overrides map[string]any
	loaded    bool
}

type envFallback struct {
	key    string
	envVar string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithListKeys marks keys whose environment values are comma-separated
// lists.
func WithListKeys(keys ...string) Option {
	return func(l *Loader) {
		for _, k := range keys {
			l.listKeys[k] = true
		}
	}
}

// WithEnvFallback reads envVar into key when no other source set key.
func WithEnvFallback(key, envVar string) Option {
	return func(l *Loader) {
		l.fallbacks = append(l.fallbacks, envFallback{key: key, envVar: envVar})
	}
}

// WithOverrides sets values applied above every other source, typically
// from command-line flags. Keys may be dotted paths.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		listKeys:  make(map[string]bool),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads configuration from all sources and unmarshals into target.
// Loading order (later sources override earlier):
//  1. Values already present in target
//  2. Configuration file (YAML)
//  3. Environment variables
//  4. Fallback environment variables, for keys still unset
//  5. Overrides
func (l *Loader) Load(target any) error {
	if err := l.load(); err != nil {
		return err
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.loaded = true
	return nil
}

func (l *Loader) load() error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := l.applyFallbacks(); err != nil {
		return fmt.Errorf("load env fallback: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := l.LoadMap(l.overrides); err != nil {
			return err
		}
	}
	return nil
}

// Reload reads the same sources again into a fresh Loader.
func (l *Loader) Reload() (*Loader, error) {
	fresh := &Loader{
		k:         koanf.New("."),
		envPrefix: l.envPrefix,
		filePath:  l.filePath,
		listKeys:  l.listKeys,
		fallbacks: l.fallbacks,
		overrides: l.overrides,
	}
	if err := fresh.load(); err != nil {
		return nil, err
	}
	fresh.loaded = true
	return fresh, nil
}

// FilePath returns the configuration file path, if any.
func (l *Loader) FilePath() string {
	return l.filePath
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnv loads configuration from environment variables.
// Nesting levels are separated by a double underscore:
//
//	PAGEGATE_SERVER__HTTP__ADDR=0.0.0.0:8080   -> server.http.addr
//	PAGEGATE_SECURITY__ADMIN_SECRET=...        -> security.admin_secret
func (l *Loader) LoadEnv() error {
	provider := env.ProviderWithValue(l.envPrefix, ".", func(name, value string) (string, any) {
		key := EnvKey(l.envPrefix, name)
		if key == "" {
			return "", nil
		}
		if l.listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return nil
}

// EnvKey maps an environment variable name to a config key.
func EnvKey(prefix, name string) string {
	name = strings.TrimPrefix(name, prefix)
	parts := strings.Split(strings.ToLower(name), envNestingSeparator)
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.Join(parts, ".")
}

func (l *Loader) applyFallbacks() error {
	for _, f := range l.fallbacks {
		if l.k.Exists(f.key) {
			continue
		}
		v, ok := os.LookupEnv(f.envVar)
		if !ok || v == "" {
			continue
		}
		if err := l.k.Set(f.key, v); err != nil {
			return err
		}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadMap loads configuration from a map (useful for flags or testing).
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// IsLoaded returns true if configuration has been loaded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// Keys returns all configuration keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}
