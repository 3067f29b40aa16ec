package kvlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ilkerhalil/kvlite/internal/store"
)

// Go forbids type parameters on methods, so the typed read/write surface
// lives as free functions taking *Cache first, instead of forcing every
// caller through `any` and a type assertion.

// AddTimed stores value under (partition, key) with a fixed UTC expiry
// that successful reads never extend. parentKeys names up to five existing
// rows, in the same partition, whose deletion should cascade to this one.
func AddTimed[T any](c *Cache, ctx context.Context, partition, key string, value T, utcExpiry int64, parentKeys ...string) error {
	return add(c, ctx, partition, key, value, utcExpiry, 0, parentKeys)
}

// AddSliding stores value with an expiry that reads push forward by
// intervalSeconds every time they succeed.
func AddSliding[T any](c *Cache, ctx context.Context, partition, key string, value T, intervalSeconds int64, parentKeys ...string) error {
	if intervalSeconds <= 0 {
		return fmt.Errorf("%w: sliding interval must be > 0", ErrInvalidArgument)
	}
	now := c.clock.NowUTC()
	return add(c, ctx, partition, key, value, now+intervalSeconds, intervalSeconds, parentKeys)
}

// AddStatic stores value with the sliding interval configured on Settings
// (StaticIntervalDays), rather than one supplied at the call site.
func AddStatic[T any](c *Cache, ctx context.Context, partition, key string, value T, parentKeys ...string) error {
	interval := c.settings.StaticIntervalSeconds()
	now := c.clock.NowUTC()
	return add(c, ctx, partition, key, value, now+interval, interval, parentKeys)
}

func add[T any](c *Cache, ctx context.Context, partition, key string, value T, utcExpiry, interval int64, parentKeys []string) error {
	if c.closed.Load() {
		return ErrDisposed
	}
	if partition == "" || key == "" {
		return fmt.Errorf("%w: partition and key must not be empty", ErrInvalidArgument)
	}
	if len(parentKeys) > MaxParentKeys {
		return fmt.Errorf("%w: at most %d parent keys are supported", ErrInvalidArgument, MaxParentKeys)
	}

	maxP, maxK := c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength()
	fp, truncPartition, truncKey := fingerprint(partition, key, maxP, maxK)

	var parents [store.MaxParents]sql.NullString
	var parentHashes [store.MaxParents]sql.NullInt64
	for i, pk := range parentKeys {
		pfp, _, truncPK := fingerprint(partition, pk, maxP, maxK)
		if pfp == fp {
			return fmt.Errorf("%w: an item cannot be its own parent", ErrInvalidArgument)
		}
		parents[i] = sql.NullString{String: truncPK, Valid: true}
		parentHashes[i] = sql.NullInt64{Int64: int64(pfp), Valid: true}
	}

	data, compressed, err := c.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: encode value: %v", ErrInvalidArgument, err)
	}

	row := store.Row{
		Hash:        fp,
		Partition:   truncPartition,
		Key:         truncKey,
		Value:       data,
		Compressed:  compressed,
		UTCCreation: c.clock.NowUTC(),
		UTCExpiry:   utcExpiry,
		Interval:    interval,
		Parents:     parents,
		ParentHash:  parentHashes,
	}

	err = c.currentEngine().Upsert(ctx, row)
	c.swallow("add", err)
	if err != nil {
		return nil
	}

	c.maint.MaybeAutoClean(nil, c.clock.NowUTC(), c.settings.ChancesOfAutoCleanup())

	return nil
}

// Get returns the decoded value for (partition, key) if a live row exists.
// A Sliding or Static item's expiry is pushed forward by its interval as a
// side effect of this call; Timed items and misses never are. Unlike
// GetItem, this never fetches the parent-key/partition columns it doesn't
// need to decode a bare value.
func Get[T any](c *Cache, ctx context.Context, partition, key string) (T, bool) {
	var zero T
	if c.closed.Load() {
		return zero, false
	}
	fp, _, _ := fingerprint(partition, key, c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength())
	return getValueByHash[T](c, ctx, fp, true, true)
}

// GetItem is Get, returning the full decoded row.
func GetItem[T any](c *Cache, ctx context.Context, partition, key string) (CacheItem[T], bool) {
	var zero CacheItem[T]
	if c.closed.Load() {
		return zero, false
	}
	fp, _, _ := fingerprint(partition, key, c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength())
	return getByHash[T](c, ctx, fp, true)
}

// getByHash is the shared lookup/evict/refresh protocol for the *Item
// variants, which need the full row (partition, key, parent keys): fetch
// the row even if expired (so an expired-but-not-yet-evicted row can be
// lazily deleted here rather than surviving as a ghost until some other
// sweep finds it), then refresh a sliding/static expiry on a live hit when
// refresh is requested.
func getByHash[T any](c *Cache, ctx context.Context, fp uint64, refresh bool) (CacheItem[T], bool) {
	var zero CacheItem[T]
	row, found, err := c.currentEngine().PeekItem(ctx, fp, true, c.clock.NowUTC())
	c.swallow("get_item", err)
	if err != nil || !found {
		return zero, false
	}

	now := c.clock.NowUTC()
	if now > row.UTCExpiry {
		delErr := c.currentEngine().DeleteOne(ctx, fp)
		c.swallow("lazy_delete_expired", delErr)
		return zero, false
	}

	if refresh && row.Interval > 0 {
		err := c.currentEngine().UpdateExpiry(ctx, fp, now+row.Interval)
		c.swallow("refresh_expiry", err)
		if err == nil {
			row.UTCExpiry = now + row.Interval
		}
	}

	return decodeRow[T](c, row)
}

// getValueByHash is getByHash's lighter counterpart for the bare-value
// Get/Peek calls: it fetches only (value, compressed, utc_expiry,
// interval) via PeekValue rather than the full row PeekItem returns.
// ignoreExpiry mirrors the SQL-level filter (Get fetches regardless of
// expiry and lazily deletes a stale hit; Peek relies on the query itself
// excluding expired rows), and refresh gates the sliding/static expiry
// extension exactly as it does in getByHash.
func getValueByHash[T any](c *Cache, ctx context.Context, fp uint64, ignoreExpiry, refresh bool) (T, bool) {
	var zero T
	value, compressed, utcExpiry, interval, found, err := c.currentEngine().PeekValue(ctx, fp, ignoreExpiry, c.clock.NowUTC())
	c.swallow("peek_value", err)
	if err != nil || !found {
		return zero, false
	}

	now := c.clock.NowUTC()
	if ignoreExpiry && now > utcExpiry {
		delErr := c.currentEngine().DeleteOne(ctx, fp)
		c.swallow("lazy_delete_expired", delErr)
		return zero, false
	}

	if refresh && interval > 0 {
		err := c.currentEngine().UpdateExpiry(ctx, fp, now+interval)
		c.swallow("refresh_expiry", err)
	}

	var v T
	if err := c.codec.Decode(value, compressed, &v); err != nil {
		c.swallow("decode_value", err)
		if delErr := c.currentEngine().DeleteOne(context.Background(), fp); delErr != nil {
			c.swallow("delete_corrupt_row", delErr)
		}
		return zero, false
	}
	c.swallow("decode_value", nil)
	return v, true
}

// decodeRow runs the codec pipeline in reverse. A decode failure marks the
// row as corrupt and deletes it rather than returning garbage — the same
// treatment given any other internal failure.
func decodeRow[T any](c *Cache, row store.Row) (CacheItem[T], bool) {
	var zero CacheItem[T]
	var value T
	if err := c.codec.Decode(row.Value, row.Compressed, &value); err != nil {
		c.swallow("decode_row", err)
		delErr := c.currentEngine().DeleteOne(context.Background(), row.Hash)
		if delErr != nil {
			c.swallow("delete_corrupt_row", delErr)
		}
		return zero, false
	}
	c.swallow("decode_row", nil)
	return CacheItem[T]{
		Partition:   row.Partition,
		Key:         row.Key,
		Value:       value,
		UTCCreation: row.UTCCreation,
		UTCExpiry:   row.UTCExpiry,
		Interval:    row.Interval,
		ParentKeys:  row.ParentKeys(),
	}, true
}

// GetItems decodes and returns every live row in partition, refreshing
// sliding/static expiries along the way.
func GetItems[T any](c *Cache, ctx context.Context, partition string) []CacheItem[T] {
	if c.closed.Load() {
		return nil
	}
	rows, err := c.currentEngine().PeekItems(ctx, partitionPtr(partition), false, c.clock.NowUTC())
	c.swallow("get_items", err)
	if err != nil {
		return nil
	}
	now := c.clock.NowUTC()
	out := make([]CacheItem[T], 0, len(rows))
	for _, r := range rows {
		if r.Interval > 0 {
			if err := c.currentEngine().UpdateExpiry(ctx, r.Hash, now+r.Interval); err != nil {
				c.swallow("refresh_expiry", err)
			}
		}
		item, ok := decodeRow[T](c, r)
		if ok {
			out = append(out, item)
		}
	}
	return out
}

// Peek returns the decoded value for (partition, key) without refreshing
// its expiry.
func Peek[T any](c *Cache, ctx context.Context, partition, key string) (T, bool) {
	var zero T
	if c.closed.Load() {
		return zero, false
	}
	fp, _, _ := fingerprint(partition, key, c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength())
	return getValueByHash[T](c, ctx, fp, false, false)
}

// PeekItem is Peek, returning the full decoded row.
func PeekItem[T any](c *Cache, ctx context.Context, partition, key string) (CacheItem[T], bool) {
	var zero CacheItem[T]
	if c.closed.Load() {
		return zero, false
	}
	fp, _, _ := fingerprint(partition, key, c.settings.MaxPartitionNameLength(), c.settings.MaxKeyNameLength())
	row, found, err := c.currentEngine().PeekItem(ctx, fp, false, c.clock.NowUTC())
	c.swallow("peek_item", err)
	if err != nil || !found {
		return zero, false
	}
	return decodeRow[T](c, row)
}

// PeekItems decodes and returns every live row in partition without
// refreshing any expiry.
func PeekItems[T any](c *Cache, ctx context.Context, partition string) []CacheItem[T] {
	if c.closed.Load() {
		return nil
	}
	rows, err := c.currentEngine().PeekItems(ctx, partitionPtr(partition), false, c.clock.NowUTC())
	c.swallow("peek_items", err)
	if err != nil {
		return nil
	}
	out := make([]CacheItem[T], 0, len(rows))
	for _, r := range rows {
		item, ok := decodeRow[T](c, r)
		if ok {
			out = append(out, item)
		}
	}
	return out
}

// GetOrAddTimed returns the live value for (partition, key), calling
// factory and storing its result with a fixed utcExpiry only on a miss.
func GetOrAddTimed[T any](c *Cache, ctx context.Context, partition, key string, utcExpiry int64, factory func() (T, []string, error)) (T, error) {
	if v, ok := Get[T](c, ctx, partition, key); ok {
		return v, nil
	}
	v, parents, err := factory()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := AddTimed(c, ctx, partition, key, v, utcExpiry, parents...); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// GetOrAddSliding is GetOrAddTimed with a sliding lifetime.
func GetOrAddSliding[T any](c *Cache, ctx context.Context, partition, key string, intervalSeconds int64, factory func() (T, []string, error)) (T, error) {
	if v, ok := Get[T](c, ctx, partition, key); ok {
		return v, nil
	}
	v, parents, err := factory()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := AddSliding(c, ctx, partition, key, v, intervalSeconds, parents...); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// GetOrAddStatic is GetOrAddTimed using Settings' configured static
// interval rather than one supplied at the call site.
func GetOrAddStatic[T any](c *Cache, ctx context.Context, partition, key string, factory func() (T, []string, error)) (T, error) {
	if v, ok := Get[T](c, ctx, partition, key); ok {
		return v, nil
	}
	v, parents, err := factory()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := AddStatic(c, ctx, partition, key, v, parents...); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
