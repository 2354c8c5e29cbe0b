package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerEngine owns a Badger database shared by the namespaced stores
// returned from Namespace.
type BadgerEngine struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.Counter

	stopCh chan struct{}
	doneCh chan struct{}
	closed atomic.Bool
}

// NewBadgerEngine opens (or creates) a Badger database in dir.
func NewBadgerEngine(dir string, cfg BadgerConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.CacheSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.SyncWrites = cfg.SyncWrites
	// Swap relies on optimistic conflict detection.
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	engine := &BadgerEngine{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go engine.gcLoop()

	logger.Info("badger engine started",
		"dir", dir,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return engine, nil
}

// Namespace returns a Store view over keys prefixed with namespace.
func (e *BadgerEngine) Namespace(namespace string) *BadgerStore {
	return &BadgerStore{engine: e, namespace: namespace}
}

// GC runs value-log garbage collection until Badger reports nothing to
// rewrite. It returns the number of rewrite cycles.
func (e *BadgerEngine) GC() (int, error) {
	start := time.Now()
	cycles := 0
	for {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return cycles, fmt.Errorf("gc: %w", err)
		}
		cycles++
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.gcRuns.Add(1)
	if e.metricsGCRuns != nil {
		e.metricsGCRuns.Inc()
	}

	e.logger.Debug("gc completed",
		"cycles", cycles,
		"elapsed", time.Since(start))

	return cycles, nil
}

// Ping checks the database is open.
func (e *BadgerEngine) Ping(context.Context) error {
	if e.closed.Load() || e.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close stops background work and closes the database.
func (e *BadgerEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Info("shutting down badger engine")

	close(e.stopCh)
	<-e.doneCh

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger size and GC metrics with registry.
// Returns the engine for method chaining.
func (e *BadgerEngine) RegisterMetrics(registry prometheus.Registerer) *BadgerEngine {
	e.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pagegate",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	e.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pagegate",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	e.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pagegate",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	e.metricsGCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pagegate",
		Subsystem: "badger",
		Name:      "gc_runs_total",
		Help:      "Completed Badger value-log GC runs",
	})

	registry.MustRegister(
		e.metricsLSMSize,
		e.metricsValueLogSize,
		e.metricsLastGCTime,
		e.metricsGCRuns,
	)

	e.updateMetrics()
	go e.metricsUpdateLoop()

	return e
}

func (e *BadgerEngine) updateMetrics() {
	lsm, vlog := e.db.Size()
	e.metricsLSMSize.Set(float64(lsm))
	e.metricsValueLogSize.Set(float64(vlog))
	if last := e.lastGCTime.Load(); last > 0 {
		e.metricsLastGCTime.Set(float64(last) / 1000.0)
	}
}

// metricsUpdateLoop periodically refreshes size gauges.
func (e *BadgerEngine) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.closed.Load() {
				return
			}
			e.updateMetrics()
		case <-e.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (e *BadgerEngine) gcLoop() {
	defer close(e.doneCh)

	interval := e.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := e.GC(); err != nil {
				e.logger.Error("auto gc failed", "error", err)
			}
		case <-e.stopCh:
			return
		}
	}
}

// BadgerStore is a namespaced Store backed by a BadgerEngine.
type BadgerStore struct {
	engine    *BadgerEngine
	namespace string
}

func (s *BadgerStore) key(k string) []byte {
	return []byte(namespaceKey(s.namespace, k))
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.engine.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, badgerError(err)
	}
	return value, nil
}

// Put implements Store.
func (s *BadgerStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.engine.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newBadgerEntry(s.key(key), value, ttl))
	})
	return badgerError(err)
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.engine.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	return badgerError(err)
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	result := &ListResult{}
	prefix := s.key(opts.Prefix)

	err := s.engine.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		start := prefix
		if opts.Cursor != "" {
			start = s.key(opts.Cursor)
		}

		for it.Seek(start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := stripNamespace(s.namespace, string(it.Item().Key()))
			if opts.Cursor != "" && name == opts.Cursor {
				continue
			}
			if opts.Limit > 0 && len(result.Keys) == opts.Limit {
				result.Cursor = result.Keys[len(result.Keys)-1]
				return nil
			}
			result.Keys = append(result.Keys, name)
		}
		result.Complete = true
		return nil
	})
	if err != nil {
		return nil, badgerError(err)
	}
	return result, nil
}

// Swap implements Swapper using a conflict-detecting transaction.
func (s *BadgerStore) Swap(ctx context.Context, key string, oldValue, newValue []byte, ttl time.Duration) (bool, error) {
	swapped := false
	err := s.engine.db.Update(func(txn *badger.Txn) error {
		k := s.key(key)
		item, err := txn.Get(k)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if oldValue != nil {
				return nil
			}
		case err != nil:
			return err
		default:
			if oldValue == nil {
				return nil
			}
			current, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !bytes.Equal(current, oldValue) {
				return nil
			}
		}
		if err := txn.SetEntry(newBadgerEntry(k, newValue, ttl)); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, badgerError(err)
	}
	return swapped, nil
}

func newBadgerEntry(key, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry(key, value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

// badgerError maps Badger errors onto storage errors.
func badgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrKeyNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
