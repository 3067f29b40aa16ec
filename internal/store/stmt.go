package store

import (
	"context"
	"database/sql"
	"fmt"
)

// stmtSet is the pre-prepared statement set each pooled connection owns:
// nine of the ten logical operations, bound through named parameter slots
// rather than reused positional indexes across statements. The tenth,
// incremental vacuum, is not in the set; Engine.IncrementalVacuum executes
// it directly on the connection.
// A stmtSet's lifetime equals its connection's lifetime; it never escapes
// the PooledConn that owns it.
type stmtSet struct {
	upsert           *sql.Stmt
	contains         *sql.Stmt
	count            *sql.Stmt
	peekValue        *sql.Stmt
	peekItem         *sql.Stmt
	peekItems        *sql.Stmt
	updateExpiry     *sql.Stmt
	deleteOne        *sql.Stmt
	deleteMany       *sql.Stmt
}

const peekItemColumns = `hash, partition, key, value, compressed, utc_creation, utc_expiry, interval,
	parent_key_0, parent_hash_0, parent_key_1, parent_hash_1,
	parent_key_2, parent_hash_2, parent_key_3, parent_hash_3,
	parent_key_4, parent_hash_4`

const (
	sqlUpsert = `
INSERT INTO cache_item (
	hash, partition, key, value, compressed, utc_creation, utc_expiry, interval,
	parent_key_0, parent_hash_0, parent_key_1, parent_hash_1,
	parent_key_2, parent_hash_2, parent_key_3, parent_hash_3,
	parent_key_4, parent_hash_4
) VALUES (
	:hash, :partition, :key, :value, :compressed, :utc_creation, :utc_expiry, :interval,
	:parent_key_0, :parent_hash_0, :parent_key_1, :parent_hash_1,
	:parent_key_2, :parent_hash_2, :parent_key_3, :parent_hash_3,
	:parent_key_4, :parent_hash_4
)
ON CONFLICT (hash) DO UPDATE SET
	partition = excluded.partition,
	key = excluded.key,
	value = excluded.value,
	compressed = excluded.compressed,
	utc_creation = excluded.utc_creation,
	utc_expiry = excluded.utc_expiry,
	interval = excluded.interval,
	parent_key_0 = excluded.parent_key_0, parent_hash_0 = excluded.parent_hash_0,
	parent_key_1 = excluded.parent_key_1, parent_hash_1 = excluded.parent_hash_1,
	parent_key_2 = excluded.parent_key_2, parent_hash_2 = excluded.parent_hash_2,
	parent_key_3 = excluded.parent_key_3, parent_hash_3 = excluded.parent_hash_3,
	parent_key_4 = excluded.parent_key_4, parent_hash_4 = excluded.parent_hash_4
`

	sqlContains = `SELECT 1 FROM cache_item WHERE hash = :hash AND utc_expiry >= :utc_now LIMIT 1`

	sqlCount = `
SELECT COUNT(*) FROM cache_item
WHERE (:partition IS NULL OR partition = :partition)
  AND (:ignore_expiry = 1 OR utc_expiry >= :utc_now)
`

	sqlPeekValue = `
SELECT value, compressed, utc_expiry, interval FROM cache_item
WHERE hash = :hash AND (:ignore_expiry = 1 OR utc_expiry >= :utc_now)
`

	sqlPeekItem = `
SELECT ` + peekItemColumns + ` FROM cache_item
WHERE hash = :hash AND (:ignore_expiry = 1 OR utc_expiry >= :utc_now)
`

	sqlPeekItems = `
SELECT ` + peekItemColumns + ` FROM cache_item
WHERE (:partition IS NULL OR partition = :partition)
  AND (:ignore_expiry = 1 OR utc_expiry >= :utc_now)
`

	sqlUpdateExpiry = `UPDATE cache_item SET utc_expiry = :utc_expiry WHERE hash = :hash`

	sqlDeleteOne = `DELETE FROM cache_item WHERE hash = :hash`

	sqlDeleteMany = `
DELETE FROM cache_item
WHERE (:partition IS NULL OR partition = :partition)
  AND (:ignore_expiry = 1 OR utc_expiry < :utc_now)
`
)

// prepareStmtSet prepares every statement on conn. All nine are prepared up
// front at connection-open time so a live connection never pays prepare
// cost mid-operation.
func prepareStmtSet(ctx context.Context, conn *sql.Conn) (*stmtSet, error) {
	type prep struct {
		dst **sql.Stmt
		sql string
		op  string
	}
	var set stmtSet
	plan := []prep{
		{&set.upsert, sqlUpsert, "upsert"},
		{&set.contains, sqlContains, "contains"},
		{&set.count, sqlCount, "count"},
		{&set.peekValue, sqlPeekValue, "peek_value"},
		{&set.peekItem, sqlPeekItem, "peek_item"},
		{&set.peekItems, sqlPeekItems, "peek_items"},
		{&set.updateExpiry, sqlUpdateExpiry, "update_expiry"},
		{&set.deleteOne, sqlDeleteOne, "delete_one"},
		{&set.deleteMany, sqlDeleteMany, "delete_many"},
	}
	for _, p := range plan {
		stmt, err := conn.PrepareContext(ctx, p.sql)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("prepare %s: %w", p.op, err)
		}
		*p.dst = stmt
	}
	return &set, nil
}

// Close releases every prepared statement. Safe to call on a partially
// populated set (prepareStmtSet's own cleanup path does this on failure).
func (s *stmtSet) Close() {
	for _, stmt := range []*sql.Stmt{
		s.upsert, s.contains, s.count, s.peekValue, s.peekItem,
		s.peekItems, s.updateExpiry, s.deleteOne, s.deleteMany,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}
