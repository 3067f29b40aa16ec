package store

import (
	"context"
	"database/sql"
	"fmt"
)

// expectedColumns are the columns the bootstrap check verifies before
// deciding the cache table needs creating.
var expectedColumns = []string{
	"hash", "partition", "key", "value", "compressed",
	"utc_creation", "utc_expiry", "interval",
	"parent_key_0", "parent_hash_0",
	"parent_key_1", "parent_hash_1",
	"parent_key_2", "parent_hash_2",
	"parent_key_3", "parent_hash_3",
	"parent_key_4", "parent_hash_4",
}

// tableExists checks sqlite_master for the cache table, the same idiom
// steveyegge-beads's migrations package uses before creating a table.
func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var got string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// hasExpectedColumns introspects the live schema via PRAGMA table_info and
// checks every expected column is present.
func hasExpectedColumns(ctx context.Context, db *sql.DB, table string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	seen := make(map[string]bool, len(expectedColumns))
	for rows.Next() {
		var (
			cid        int
			name, ctyp string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctyp, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		seen[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, col := range expectedColumns {
		if !seen[col] {
			return false, nil
		}
	}
	return true, nil
}

// createSchema creates the cache_item table, its indexes, and the
// parent-key foreign-key/cascade constraints. Self-references are rejected
// by CHECK constraints rather than application code.
func createSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS cache_item (
	hash          INTEGER NOT NULL PRIMARY KEY,
	partition     TEXT    NOT NULL,
	key           TEXT    NOT NULL,
	value         BLOB    NOT NULL,
	compressed    INTEGER NOT NULL,
	utc_creation  INTEGER NOT NULL,
	utc_expiry    INTEGER NOT NULL,
	interval      INTEGER NOT NULL,
	parent_key_0  TEXT,
	parent_hash_0 INTEGER REFERENCES cache_item(hash) ON DELETE CASCADE,
	parent_key_1  TEXT,
	parent_hash_1 INTEGER REFERENCES cache_item(hash) ON DELETE CASCADE,
	parent_key_2  TEXT,
	parent_hash_2 INTEGER REFERENCES cache_item(hash) ON DELETE CASCADE,
	parent_key_3  TEXT,
	parent_hash_3 INTEGER REFERENCES cache_item(hash) ON DELETE CASCADE,
	parent_key_4  TEXT,
	parent_hash_4 INTEGER REFERENCES cache_item(hash) ON DELETE CASCADE,
	UNIQUE (partition, key),
	CHECK (parent_hash_0 IS NULL OR parent_hash_0 != hash),
	CHECK (parent_hash_1 IS NULL OR parent_hash_1 != hash),
	CHECK (parent_hash_2 IS NULL OR parent_hash_2 != hash),
	CHECK (parent_hash_3 IS NULL OR parent_hash_3 != hash),
	CHECK (parent_hash_4 IS NULL OR parent_hash_4 != hash)
);
CREATE INDEX IF NOT EXISTS idx_cache_item_utc_expiry ON cache_item (utc_expiry);
CREATE INDEX IF NOT EXISTS idx_cache_item_partition_utc_expiry ON cache_item (partition, utc_expiry);
`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create cache_item schema: %w", err)
	}
	return nil
}

// Bootstrap verifies the cache table exists with the expected shape and
// creates it (with indexes and FK constraints) if not. The caller is
// expected to run one soft clear immediately after.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	exists, err := tableExists(ctx, db, "cache_item")
	if err != nil {
		return fmt.Errorf("introspect cache_item: %w", err)
	}
	if exists {
		ok, err := hasExpectedColumns(ctx, db, "cache_item")
		if err != nil {
			return fmt.Errorf("introspect cache_item columns: %w", err)
		}
		if ok {
			return nil
		}
		// Schema drift on a cache table: the table is disposable, so
		// rebuilding it is safe and simpler than a migration chain.
		if _, err := db.ExecContext(ctx, `DROP TABLE cache_item`); err != nil {
			return fmt.Errorf("drop stale cache_item: %w", err)
		}
	}
	return createSchema(ctx, db)
}
