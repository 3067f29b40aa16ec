// Package kvlite implements an embedded, persistent key/value cache backed
// by a SQLite storage engine (github.com/ncruces/go-sqlite3, a pure-Go
// driver — no cgo). Values are arbitrary Go types, round-tripped through a
// pluggable codec/serialization pipeline (encoding/gob by default,
// optionally zstd-compressed above a size threshold) and addressed by a
// 64-bit fingerprint over (partition, key).
//
// Three lifetime shapes govern expiry: Timed (a fixed deadline that reads
// never extend), Sliding (a caller-supplied interval re-armed on every
// successful read), and Static (the same sliding behavior, but the
// interval comes from Settings rather than the call site). An item may
// name up to five parent keys in its own partition; deleting a parent
// cascades to every descendant through the storage engine's own foreign
// keys, never application-level bookkeeping.
//
// Every exported cache operation follows one rule: internal storage, pool,
// or codec failures are recorded to a diagnostic last-error slot and
// logged, never returned to the caller. Only ErrInvalidArgument,
// ErrDisposed, and ErrNotSupported are ever surfaced synchronously. Open is
// the exception: a failure to open the store is returned wrapped in
// ErrInternalStore.
package kvlite

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ilkerhalil/kvlite/codec"
	"github.com/ilkerhalil/kvlite/internal/maintenance"
	"github.com/ilkerhalil/kvlite/internal/store"
)

// Stats is a point-in-time snapshot of cache-wide counters.
type Stats struct {
	Count int64
}

// Cache is the façade over the storage engine, connection pool, codec
// pipeline, and maintenance controller. The zero value is not usable;
// construct one with Open.
type Cache struct {
	settings *Settings
	maint    *maintenance.Controller
	codec    *codec.Pipeline
	clock    Clock
	log      Log

	// mu guards pool/engine: SetCacheURI's Subscribe callback swaps both
	// from its own goroutine while every other exported method reads
	// them, so a bare pointer pair would be an unsynchronized race.
	mu     sync.RWMutex
	pool   *store.Pool
	engine *store.Engine

	errs   errSlot
	closed atomic.Bool
}

// currentEngine returns the engine bound to the live pool, synchronized
// against a concurrent cache_uri rebuild.
func (c *Cache) currentEngine() *store.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}

// cacheStore adapts Cache to maintenance.Store by always dispatching
// through currentEngine, so a detached auto-cleanup goroutine started
// before a cache_uri rebuild still lands on the live engine rather than
// one whose pool has since been closed.
type cacheStore struct{ c *Cache }

func (s cacheStore) DeleteMany(ctx context.Context, partition *string, ignoreExpiry bool, now int64) (int64, error) {
	return s.c.currentEngine().DeleteMany(ctx, partition, ignoreExpiry, now)
}

func (s cacheStore) IncrementalVacuum(ctx context.Context) error {
	return s.c.currentEngine().IncrementalVacuum(ctx)
}

func (s cacheStore) Vacuum(ctx context.Context) error {
	return s.c.currentEngine().Vacuum(ctx)
}

// Open builds a Cache from settings. A nil log discards all log output; a
// nil clock uses the real wall clock. The codec pipeline defaults to gob
// serialization with zstd compression above
// settings.MinValueLengthForCompression(), matching the defaults
// DefaultSettings establishes.
func Open(ctx context.Context, settings *Settings, log Log, clock Clock) (*Cache, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings must not be nil", ErrInvalidArgument)
	}
	if log == nil {
		log = NopLog()
	}
	if clock == nil {
		clock = SystemClock()
	}

	min, max := settings.PoolSize()
	pragmaCfg := store.DefaultPragmaConfigForDSN(settings.CacheURI(), settings.MaxCacheSizeMB(), settings.MaxJournalSizeMB())
	pool, err := store.NewPool(ctx, settings.CacheURI(), min, max, pragmaCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalStore, err)
	}

	c := &Cache{
		settings: settings,
		pool:     pool,
		engine:   store.NewEngine(pool),
		codec: &codec.Pipeline{
			Serializer:              codec.GobSerializer{},
			Compressor:              codec.ZstdCompressor{},
			MinLengthForCompression: settings.MinValueLengthForCompression(),
		},
		clock: clock,
		log:   log,
	}
	c.maint = maintenance.New(cacheStore{c: c}, clock.NowUTC(), func(op string, err error) {
		c.log.Error("maintenance operation failed", zap.String("op", op), zap.Error(err))
	})

	if _, err := c.maint.SoftClean(ctx, nil, clock.NowUTC()); err != nil {
		c.errs.set(wrapf("bootstrap soft clean", err))
		c.log.Error("bootstrap soft clean failed", zap.Error(err))
	}

	settings.Subscribe(func(changed string) {
		if changed != "cache_uri" {
			return
		}
		if c.closed.Load() {
			return
		}
		min, max := c.settings.PoolSize()

		c.mu.Lock()
		oldPool := c.pool
		c.mu.Unlock()
		oldPool.Close()

		newPool, err := store.NewPool(context.Background(), c.settings.CacheURI(), min, max, pragmaCfg)
		if err != nil {
			c.errs.set(wrapf("rebuild pool on cache_uri change", err))
			c.log.Error("pool rebuild failed", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.pool = newPool
		c.engine = store.NewEngine(newPool)
		c.mu.Unlock()
	})

	return c, nil
}

func partitionPtr(partition string) *string {
	if partition == "" {
		return nil
	}
	return &partition
}

func (c *Cache) swallow(op string, err error) {
	if err != nil {
		c.errs.set(wrapf(op, err))
		c.log.Error(op, zap.Error(err))
		return
	}
	c.errs.clear()
}

// LastError returns the most recently recorded internal failure, or nil if
// none is outstanding. It is a diagnostic read, never required for correct
// operation.
func (c *Cache) LastError() error {
	return c.errs.get()
}

// Contains reports whether a live row exists for (partition, key), without
// decoding or refreshing its expiry.
func (c *Cache) Contains(ctx context.Context, partition, key string) bool {
	if c.closed.Load() {
		return false
	}
	fp, _, _ := fingerprint(partition, key, c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength())
	ok, err := c.currentEngine().Contains(ctx, fp, c.clock.NowUTC())
	c.swallow("contains", err)
	if err != nil {
		return false
	}
	return ok
}

// Count returns the number of live rows in partition, or across every
// partition if partition is empty.
func (c *Cache) Count(ctx context.Context, partition string) int64 {
	if c.closed.Load() {
		return 0
	}
	n, err := c.currentEngine().Count(ctx, partitionPtr(partition), false, c.clock.NowUTC())
	c.swallow("count", err)
	if err != nil {
		return 0
	}
	return n
}

// Remove deletes a single row by (partition, key). Cascade to dependent
// rows is handled by the storage engine's own foreign keys.
func (c *Cache) Remove(ctx context.Context, partition, key string) {
	if c.closed.Load() {
		return
	}
	fp, _, _ := fingerprint(partition, key, c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength())
	err := c.currentEngine().DeleteOne(ctx, fp)
	c.swallow("remove", err)
}

// Clear removes rows from partition (every partition, if empty). With
// ConsiderExpiryDate it removes only the rows that have expired (a soft
// clean); with IgnoreExpiryDate it removes every row regardless of expiry
// (a hard clear). Returns the number of rows removed.
func (c *Cache) Clear(ctx context.Context, partition string, mode Mode) int64 {
	if c.closed.Load() {
		return 0
	}
	n, err := c.currentEngine().DeleteMany(ctx, partitionPtr(partition), mode.ignoreExpiry(), c.clock.NowUTC())
	c.swallow("clear", err)
	if err != nil {
		return 0
	}
	return n
}

// Vacuum runs a full, explicit VACUUM. This is the manual maintenance
// call, distinct from the probabilistic auto-cleanup dispatched on writes.
func (c *Cache) Vacuum(ctx context.Context) {
	if c.closed.Load() {
		return
	}
	err := c.maint.Vacuum(ctx)
	c.swallow("vacuum", err)
}

// Stats returns a point-in-time snapshot of cache-wide counters.
func (c *Cache) Stats(ctx context.Context) Stats {
	return Stats{Count: c.Count(ctx, "")}
}

// Close waits for any in-flight auto-cleanup goroutines, then closes the
// connection pool. A closed Cache rejects every further operation with
// ErrDisposed where an error return exists, and returns the zero/false/
// empty fallback everywhere else.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.maint.Wait()
	c.mu.RLock()
	pool := c.pool
	c.mu.RUnlock()
	return pool.Close()
}
