package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Engine drives the ten logical statements against a checked-out
// connection, implementing the Get/Peek/Add/Evict protocol. It holds no
// state of its own beyond the pool; every method acquires, uses, and
// releases a connection around a single call.
type Engine struct {
	pool *Pool
}

// NewEngine wraps a pool.
func NewEngine(pool *Pool) *Engine {
	return &Engine{pool: pool}
}

func namedPartition(partition *string) sql.NamedArg {
	if partition == nil {
		return sql.Named("partition", nil)
	}
	return sql.Named("partition", *partition)
}

func namedIgnoreExpiry(ignore bool) sql.NamedArg {
	v := 0
	if ignore {
		v = 1
	}
	return sql.Named("ignore_expiry", v)
}

// Upsert inserts or replaces a row, keyed by hash, inside its own
// read-committed transaction. It is the single write path shared by every
// Add* façade operation.
func (e *Engine) Upsert(ctx context.Context, r Row) error {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	p0, p1, p2, p3, p4 := r.Parents[0], r.Parents[1], r.Parents[2], r.Parents[3], r.Parents[4]
	h0, h1, h2, h3, h4 := r.ParentHash[0], r.ParentHash[1], r.ParentHash[2], r.ParentHash[3], r.ParentHash[4]

	tx, err := pc.conn.BeginTx(ctx, nil)
	if err != nil {
		pc.Release(err)
		return fmt.Errorf("begin upsert tx hash %d: %w", r.Hash, err)
	}

	_, err = tx.StmtContext(ctx, pc.stmts.upsert).ExecContext(ctx,
		sql.Named("hash", int64(r.Hash)),
		sql.Named("partition", r.Partition),
		sql.Named("key", r.Key),
		sql.Named("value", r.Value),
		sql.Named("compressed", boolToInt(r.Compressed)),
		sql.Named("utc_creation", r.UTCCreation),
		sql.Named("utc_expiry", r.UTCExpiry),
		sql.Named("interval", r.Interval),
		sql.Named("parent_key_0", p0), sql.Named("parent_hash_0", h0),
		sql.Named("parent_key_1", p1), sql.Named("parent_hash_1", h1),
		sql.Named("parent_key_2", p2), sql.Named("parent_hash_2", h2),
		sql.Named("parent_key_3", p3), sql.Named("parent_hash_3", h3),
		sql.Named("parent_key_4", p4), sql.Named("parent_hash_4", h4),
	)
	if err != nil {
		_ = tx.Rollback()
		pc.Release(err)
		return fmt.Errorf("upsert hash %d: %w", r.Hash, err)
	}

	err = tx.Commit()
	pc.Release(err)
	if err != nil {
		return fmt.Errorf("commit upsert hash %d: %w", r.Hash, err)
	}
	return nil
}

// Contains reports whether a live (non-expired as of now) row exists for
// hash.
func (e *Engine) Contains(ctx context.Context, hash uint64, now int64) (bool, error) {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	var one int
	err = pc.stmts.contains.QueryRowContext(ctx,
		sql.Named("hash", int64(hash)),
		sql.Named("utc_now", now),
	).Scan(&one)
	pc.Release(ignoreNoRows(err))
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("contains hash %d: %w", hash, err)
	}
	return true, nil
}

// Count returns the number of rows matching partition (nil = all
// partitions) subject to the expiry filter.
func (e *Engine) Count(ctx context.Context, partition *string, ignoreExpiry bool, now int64) (int64, error) {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = pc.stmts.count.QueryRowContext(ctx,
		namedPartition(partition),
		namedIgnoreExpiry(ignoreExpiry),
		sql.Named("utc_now", now),
	).Scan(&n)
	pc.Release(err)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// PeekValue returns the raw stored bytes for hash without touching expiry
// (callers implementing the sliding-refresh step do that separately via
// UpdateExpiry once they've decided the read counts as a refresh).
func (e *Engine) PeekValue(ctx context.Context, hash uint64, ignoreExpiry bool, now int64) (value []byte, compressed bool, utcExpiry, interval int64, found bool, err error) {
	pc, acqErr := e.pool.Acquire(ctx)
	if acqErr != nil {
		return nil, false, 0, 0, false, acqErr
	}
	var compressedInt int
	scanErr := pc.stmts.peekValue.QueryRowContext(ctx,
		sql.Named("hash", int64(hash)),
		namedIgnoreExpiry(ignoreExpiry),
		sql.Named("utc_now", now),
	).Scan(&value, &compressedInt, &utcExpiry, &interval)
	pc.Release(ignoreNoRows(scanErr))
	if scanErr == sql.ErrNoRows {
		return nil, false, 0, 0, false, nil
	}
	if scanErr != nil {
		return nil, false, 0, 0, false, fmt.Errorf("peek value hash %d: %w", hash, scanErr)
	}
	return value, compressedInt != 0, utcExpiry, interval, true, nil
}

func scanRow(scan func(dest ...any) error) (Row, error) {
	var r Row
	var compressedInt int
	var hash int64
	err := scan(
		&hash, &r.Partition, &r.Key, &r.Value, &compressedInt,
		&r.UTCCreation, &r.UTCExpiry, &r.Interval,
		&r.Parents[0], &r.ParentHash[0],
		&r.Parents[1], &r.ParentHash[1],
		&r.Parents[2], &r.ParentHash[2],
		&r.Parents[3], &r.ParentHash[3],
		&r.Parents[4], &r.ParentHash[4],
	)
	if err != nil {
		return Row{}, err
	}
	r.Hash = uint64(hash)
	r.Compressed = compressedInt != 0
	return r, nil
}

// PeekItem returns the full row for hash, including parent-key references.
func (e *Engine) PeekItem(ctx context.Context, hash uint64, ignoreExpiry bool, now int64) (Row, bool, error) {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return Row{}, false, err
	}
	row := pc.stmts.peekItem.QueryRowContext(ctx,
		sql.Named("hash", int64(hash)),
		namedIgnoreExpiry(ignoreExpiry),
		sql.Named("utc_now", now),
	)
	r, scanErr := scanRow(row.Scan)
	pc.Release(ignoreNoRows(scanErr))
	if scanErr == sql.ErrNoRows {
		return Row{}, false, nil
	}
	if scanErr != nil {
		return Row{}, false, fmt.Errorf("peek item hash %d: %w", hash, scanErr)
	}
	return r, true, nil
}

// PeekItems returns every row matching partition (nil = all partitions).
func (e *Engine) PeekItems(ctx context.Context, partition *string, ignoreExpiry bool, now int64) ([]Row, error) {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pc.stmts.peekItems.QueryContext(ctx,
		namedPartition(partition),
		namedIgnoreExpiry(ignoreExpiry),
		sql.Named("utc_now", now),
	)
	if err != nil {
		pc.Release(err)
		return nil, fmt.Errorf("peek items: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, scanErr := scanRow(rows.Scan)
		if scanErr != nil {
			pc.Release(scanErr)
			return nil, fmt.Errorf("scan peek items row: %w", scanErr)
		}
		out = append(out, r)
	}
	err = rows.Err()
	pc.Release(err)
	if err != nil {
		return nil, fmt.Errorf("iterate peek items: %w", err)
	}
	return out, nil
}

// UpdateExpiry rewrites the stored expiry — the sliding-refresh half of
// the read protocol, applied by the engine caller after a successful Get
// on a sliding-lifetime item.
func (e *Engine) UpdateExpiry(ctx context.Context, hash uint64, utcExpiry int64) error {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	_, err = pc.stmts.updateExpiry.ExecContext(ctx,
		sql.Named("utc_expiry", utcExpiry),
		sql.Named("hash", int64(hash)),
	)
	pc.Release(err)
	if err != nil {
		return fmt.Errorf("update expiry hash %d: %w", hash, err)
	}
	return nil
}

// DeleteOne removes a single row by hash; ON DELETE CASCADE fans out to
// any rows whose parent_hash_N columns reference it.
func (e *Engine) DeleteOne(ctx context.Context, hash uint64) error {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	_, err = pc.stmts.deleteOne.ExecContext(ctx, sql.Named("hash", int64(hash)))
	pc.Release(err)
	if err != nil {
		return fmt.Errorf("delete hash %d: %w", hash, err)
	}
	return nil
}

// DeleteMany removes every row matching partition (nil = all partitions)
// subject to the expiry filter, returning the number of rows removed.
// This backs both soft clear (expired-only) and hard clear (ignoreExpiry).
func (e *Engine) DeleteMany(ctx context.Context, partition *string, ignoreExpiry bool, now int64) (int64, error) {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	res, err := pc.stmts.deleteMany.ExecContext(ctx,
		namedPartition(partition),
		namedIgnoreExpiry(ignoreExpiry),
		sql.Named("utc_now", now),
	)
	pc.Release(err)
	if err != nil {
		return 0, fmt.Errorf("delete many: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// IncrementalVacuum reclaims free pages without the full exclusive lock a
// plain VACUUM takes. It runs outside the statement set since it isn't a
// per-row operation.
func (e *Engine) IncrementalVacuum(ctx context.Context) error {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	_, err = pc.conn.ExecContext(ctx, "PRAGMA incremental_vacuum")
	pc.Release(err)
	if err != nil {
		return fmt.Errorf("incremental vacuum: %w", err)
	}
	return nil
}

// Vacuum runs a full VACUUM. Unlike IncrementalVacuum this takes an
// exclusive lock for its duration and is reserved for the explicit manual
// maintenance call, never the automatic probabilistic trigger.
func (e *Engine) Vacuum(ctx context.Context) error {
	pc, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	_, err = pc.conn.ExecContext(ctx, "VACUUM")
	pc.Release(err)
	if err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func ignoreNoRows(err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}
