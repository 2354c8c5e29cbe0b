package storage

import "time"

// Backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of "memory", "badger", "redis".
	// Default: "memory"
	Backend string

	// Dir is the Badger data directory.
	Dir string

	// RequestTimeout bounds a single store round trip (Redis only).
	RequestTimeout time.Duration

	Badger BadgerConfig
	Redis  RedisConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between value-log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// SyncWrites fsyncs after each write.
	// Default: true
	SyncWrites bool
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix is prepended to every key, before the namespace.
	// Default: "pagegate:"
	KeyPrefix string
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendMemory,
		RequestTimeout: 5 * time.Second,
		Badger:         DefaultBadgerConfig(),
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "pagegate:",
		},
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		SyncWrites:       true,
	}
}
