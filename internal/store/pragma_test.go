package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilkerhalil/kvlite/internal/store"
)

func TestDefaultPragmaConfigDerivesMaxPageCount(t *testing.T) {
	cfg := store.DefaultPragmaConfig(1, 1)
	assert.Equal(t, 4096, cfg.PageSizeBytes)
	assert.Equal(t, "WAL", cfg.JournalMode)
	assert.Equal(t, (1*1024*1024)/4096, cfg.MaxPageCount)
}

func TestDefaultPragmaConfigForDSNSelectsMemoryJournal(t *testing.T) {
	cfg := store.DefaultPragmaConfigForDSN("file:x?vfs=memdb", 1, 1)
	assert.Equal(t, "MEMORY", cfg.JournalMode)

	cfg = store.DefaultPragmaConfigForDSN("file:/tmp/x.db", 1, 1)
	assert.Equal(t, "WAL", cfg.JournalMode)
}
