package kvlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValidate(t *testing.T) {
	s, err := New("file:test.db")
	require.NoError(t, err)
	assert.Equal(t, "default", s.DefaultPartition())
	assert.Equal(t, int64(30*86400), s.StaticIntervalSeconds())
	assert.Equal(t, 100, s.MaxCacheSizeMB())
	min, max := s.PoolSize()
	assert.Equal(t, 1, min)
	assert.Equal(t, 10, max)
}

func TestNewRejectsEmptyCacheURI(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewRejectsInvalidChancesOfAutoCleanup(t *testing.T) {
	_, err := New("file:test.db", WithChancesOfAutoCleanup(1.5))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New("file:test.db", WithChancesOfAutoCleanup(-0.1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewRejectsInvertedPoolBounds(t *testing.T) {
	_, err := New("file:test.db", WithPoolSize(5, 2))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewRejectsNonPositiveCacheSize(t *testing.T) {
	_, err := New("file:test.db", WithMaxCacheSizeMB(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	s, err := New("file:test.db",
		WithDefaultPartition("custom"),
		WithStaticIntervalDays(1),
		WithMaxPartitionNameLength(16),
		WithMaxKeyNameLength(16),
	)
	require.NoError(t, err)
	assert.Equal(t, "custom", s.DefaultPartition())
	assert.Equal(t, int64(86400), s.StaticIntervalSeconds())
	assert.Equal(t, 16, s.MaxPartitionNameLength())
	assert.Equal(t, 16, s.MaxKeyNameLength())
}

func TestSetCacheURINotifiesSubscribers(t *testing.T) {
	s, err := New("file:a.db")
	require.NoError(t, err)

	var got string
	s.Subscribe(func(changed string) { got = changed })

	s.SetCacheURI("file:b.db")
	assert.Equal(t, "cache_uri", got)
	assert.Equal(t, "file:b.db", s.CacheURI())
}
