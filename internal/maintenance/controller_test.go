package maintenance_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkerhalil/kvlite/internal/maintenance"
)

type stubStore struct {
	mu               sync.Mutex
	deleteManyCalls  int
	deleteManyErr    error
	incVacuumCalled  bool
	vacuumCalled     bool
	lastIgnoreExpiry bool
}

func (s *stubStore) DeleteMany(ctx context.Context, partition *string, ignoreExpiry bool, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteManyCalls++
	s.lastIgnoreExpiry = ignoreExpiry
	return 1, s.deleteManyErr
}

func (s *stubStore) IncrementalVacuum(ctx context.Context) error {
	s.incVacuumCalled = true
	return nil
}

func (s *stubStore) Vacuum(ctx context.Context) error {
	s.vacuumCalled = true
	return nil
}

func (s *stubStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteManyCalls
}

func TestSoftCleanUsesExpiryFilter(t *testing.T) {
	store := &stubStore{}
	c := maintenance.New(store, 1, nil)

	_, err := c.SoftClean(context.Background(), nil, 1000)
	require.NoError(t, err)
	assert.False(t, store.lastIgnoreExpiry)
}

func TestHardClearIgnoresExpiry(t *testing.T) {
	store := &stubStore{}
	c := maintenance.New(store, 1, nil)

	_, err := c.HardClear(context.Background(), nil, 1000)
	require.NoError(t, err)
	assert.True(t, store.lastIgnoreExpiry)
}

func TestMaybeAutoCleanSkipsWhenChanceIsZero(t *testing.T) {
	store := &stubStore{}
	c := maintenance.New(store, 1, nil)

	c.MaybeAutoClean(nil, 1000, 0)
	c.Wait()
	assert.Equal(t, 0, store.calls())
}

func TestMaybeAutoCleanDispatchesWhenChanceIsCertain(t *testing.T) {
	store := &stubStore{}
	c := maintenance.New(store, 1, nil)

	c.MaybeAutoClean(nil, 1000, 1)
	c.Wait()
	assert.Equal(t, 1, store.calls())
}

func TestMaybeAutoCleanLogsFailure(t *testing.T) {
	store := &stubStore{deleteManyErr: errors.New("boom")}
	var loggedOp string
	var loggedErr error
	c := maintenance.New(store, 1, func(op string, err error) {
		loggedOp = op
		loggedErr = err
	})

	c.MaybeAutoClean(nil, 1000, 1)
	c.Wait()

	assert.Equal(t, "auto_clean", loggedOp)
	assert.EqualError(t, loggedErr, "boom")
}

func TestVacuumAndIncrementalVacuumDelegate(t *testing.T) {
	store := &stubStore{}
	c := maintenance.New(store, 1, nil)

	require.NoError(t, c.Vacuum(context.Background()))
	require.NoError(t, c.IncrementalVacuum(context.Background()))
	assert.True(t, store.vacuumCalled)
	assert.True(t, store.incVacuumCalled)
}
