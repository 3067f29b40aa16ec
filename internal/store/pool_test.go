package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkerhalil/kvlite/internal/store"
)

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?vfs=memdb", t.Name())
	cfg := store.DefaultPragmaConfigForDSN(dsn, 16, 8)
	pool, err := store.NewPool(context.Background(), dsn, 1, 2, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pc.Stmts())
	pc.Release(nil)
}

func TestPoolAcquireBlocksAtMax(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?vfs=memdb", t.Name())
	cfg := store.DefaultPragmaConfigForDSN(dsn, 16, 8)
	pool, err := store.NewPool(context.Background(), dsn, 1, 1, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a second acquire must block once max is checked out")

	pc.Release(nil)
}

func TestPoolAcquireAfterCloseFails(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?vfs=memdb", t.Name())
	cfg := store.DefaultPragmaConfigForDSN(dsn, 16, 8)
	pool, err := store.NewPool(context.Background(), dsn, 1, 2, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, store.ErrPoolClosed)
}

func TestPoolAcquireReusesReleasedConnection(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?vfs=memdb", t.Name())
	cfg := store.DefaultPragmaConfigForDSN(dsn, 16, 8)
	pool, err := store.NewPool(context.Background(), dsn, 1, 1, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	pc, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pc.Release(nil)

	pc2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pc2.Release(nil)
}
