package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PragmaConfig carries the tunables every pooled connection applies.
type PragmaConfig struct {
	PageSizeBytes    int
	JournalMode      string // "WAL" for on-disk, "MEMORY" for in-memory
	MaxCacheSizeMB   int
	MaxPageCount     int // derived: MaxCacheSizeMB * 1MB / PageSizeBytes
	MaxJournalSizeMB int
}

// DefaultPragmaConfig returns the engine's default tunables, assuming an
// on-disk database (WAL journaling).
func DefaultPragmaConfig(maxCacheSizeMB, maxJournalSizeMB int) PragmaConfig {
	return DefaultPragmaConfigForDSN("", maxCacheSizeMB, maxJournalSizeMB)
}

// DefaultPragmaConfigForDSN is DefaultPragmaConfig, but selects MEMORY
// journaling for a dsn that names an in-memory database (the ncruces
// driver's "vfs=memdb" shared in-memory VFS, or a standard ":memory:"/
// "mode=memory" URI) since WAL requires a real backing file.
func DefaultPragmaConfigForDSN(dsn string, maxCacheSizeMB, maxJournalSizeMB int) PragmaConfig {
	const pageSize = 4096
	journal := "WAL"
	if isMemoryDSN(dsn) {
		journal = "MEMORY"
	}
	cfg := PragmaConfig{
		PageSizeBytes:    pageSize,
		JournalMode:      journal,
		MaxCacheSizeMB:   maxCacheSizeMB,
		MaxJournalSizeMB: maxJournalSizeMB,
	}
	cfg.MaxPageCount = (maxCacheSizeMB * 1024 * 1024) / pageSize
	return cfg
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") ||
		strings.Contains(dsn, "mode=memory") ||
		strings.Contains(dsn, "vfs=memdb")
}

// applyPragmas configures a single connection: fixed page size,
// configurable journal mode, foreign keys and
// recursive triggers on (required for cascade chains), synchronous off and
// temp_store in memory (durability traded for cache throughput), and
// max_page_count derived from the configured size cap.
func applyPragmas(ctx context.Context, conn *sql.Conn, cfg PragmaConfig) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA page_size = %d", cfg.PageSizeBytes),
		fmt.Sprintf("PRAGMA journal_mode = %s", cfg.JournalMode),
		"PRAGMA foreign_keys = ON",
		"PRAGMA recursive_triggers = ON",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
		fmt.Sprintf("PRAGMA max_page_count = %d", cfg.MaxPageCount),
		fmt.Sprintf("PRAGMA journal_size_limit = %d", cfg.MaxJournalSizeMB*1024*1024),
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}
