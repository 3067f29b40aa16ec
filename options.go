package kvlite

import (
	"fmt"
	"sync"
)

// Settings holds every configuration knob the cache needs at construction
// time. It is built with functional Options (the same options pattern
// neekrasov-kvdb uses for its storage engine), not a file-backed config
// loader — file-backed config and its hot-reload plumbing are out of
// scope.
//
// What IS in scope is an in-process settings-change signal: mutating
// CacheURI through SetCacheURI fires every subscriber synchronously so the
// Cache can close its connection pool and open a new one. That's a plain
// observer, not a file watcher.
type Settings struct {
	mu sync.Mutex

	defaultPartition string

	// staticIntervalDays is the lifetime, in days, of Static items.
	staticIntervalDays int

	// maxCacheSizeMB is the hard upper bound backing max_page_count.
	maxCacheSizeMB int

	// maxJournalSizeMB caps journal growth.
	maxJournalSizeMB int

	// chancesOfAutoCleanup is the probability (0..1) that a successful add
	// triggers a soft clean.
	chancesOfAutoCleanup float64

	// minValueLengthForCompression is the byte threshold above which
	// values are routed through the Compressor.
	minValueLengthForCompression int

	maxPartitionNameLength int
	maxKeyNameLength       int

	// cacheURI is the data-source locator (file path or memory URI).
	cacheURI string

	minPoolSize int
	maxPoolSize int

	subscribers []func(changed string)
}

// Option configures a Settings at construction time.
type Option func(*Settings)

// DefaultSettings returns a Settings populated with the engine's default
// values.
func DefaultSettings(cacheURI string) *Settings {
	return &Settings{
		defaultPartition:             "default",
		staticIntervalDays:           30,
		maxCacheSizeMB:               100,
		maxJournalSizeMB:             20,
		chancesOfAutoCleanup:         0.01,
		minValueLengthForCompression: 4096,
		maxPartitionNameLength:       DefaultMaxPartitionNameLength,
		maxKeyNameLength:             DefaultMaxKeyNameLength,
		cacheURI:                     cacheURI,
		minPoolSize:                  1,
		maxPoolSize:                  10,
	}
}

// New applies opts on top of DefaultSettings(cacheURI) and validates the
// result.
func New(cacheURI string, opts ...Option) (*Settings, error) {
	s := DefaultSettings(cacheURI)
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	switch {
	case s.cacheURI == "":
		return fmt.Errorf("%w: cache_uri must not be empty", ErrInvalidArgument)
	case s.staticIntervalDays <= 0:
		return fmt.Errorf("%w: static_interval_in_days must be > 0", ErrInvalidArgument)
	case s.maxCacheSizeMB <= 0:
		return fmt.Errorf("%w: max_cache_size_mb must be > 0", ErrInvalidArgument)
	case s.chancesOfAutoCleanup < 0 || s.chancesOfAutoCleanup > 1:
		return fmt.Errorf("%w: chances_of_auto_cleanup must be in [0,1]", ErrInvalidArgument)
	case s.minValueLengthForCompression < 0:
		return fmt.Errorf("%w: min_value_length_for_compression must be >= 0", ErrInvalidArgument)
	case s.maxPartitionNameLength <= 0:
		return fmt.Errorf("%w: max_partition_name_length must be > 0", ErrInvalidArgument)
	case s.maxKeyNameLength <= 0:
		return fmt.Errorf("%w: max_key_name_length must be > 0", ErrInvalidArgument)
	case s.minPoolSize <= 0:
		return fmt.Errorf("%w: min pool size must be > 0", ErrInvalidArgument)
	case s.maxPoolSize < s.minPoolSize:
		return fmt.Errorf("%w: max pool size must be >= min pool size", ErrInvalidArgument)
	}
	return nil
}

func WithDefaultPartition(p string) Option {
	return func(s *Settings) { s.defaultPartition = p }
}

func WithStaticIntervalDays(days int) Option {
	return func(s *Settings) { s.staticIntervalDays = days }
}

func WithMaxCacheSizeMB(mb int) Option {
	return func(s *Settings) { s.maxCacheSizeMB = mb }
}

func WithMaxJournalSizeMB(mb int) Option {
	return func(s *Settings) { s.maxJournalSizeMB = mb }
}

func WithChancesOfAutoCleanup(p float64) Option {
	return func(s *Settings) { s.chancesOfAutoCleanup = p }
}

func WithMinValueLengthForCompression(n int) Option {
	return func(s *Settings) { s.minValueLengthForCompression = n }
}

func WithMaxPartitionNameLength(n int) Option {
	return func(s *Settings) { s.maxPartitionNameLength = n }
}

func WithMaxKeyNameLength(n int) Option {
	return func(s *Settings) { s.maxKeyNameLength = n }
}

func WithPoolSize(min, max int) Option {
	return func(s *Settings) { s.minPoolSize = min; s.maxPoolSize = max }
}

// Subscribe registers fn to be called, with the name of the changed
// property, whenever a setter mutates this Settings. Used by Cache to
// replace its connection pool when the data source changes.
func (s *Settings) Subscribe(fn func(changed string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Settings) notify(changed string) {
	s.mu.Lock()
	subs := make([]func(string), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(changed)
	}
}

// SetCacheURI changes the data-source locator and notifies subscribers.
// This is the one setting whose change must invalidate and rebuild the
// connection pool.
func (s *Settings) SetCacheURI(uri string) {
	s.mu.Lock()
	s.cacheURI = uri
	s.mu.Unlock()
	s.notify("cache_uri")
}

func (s *Settings) CacheURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheURI
}

func (s *Settings) DefaultPartition() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultPartition
}

func (s *Settings) StaticIntervalSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.staticIntervalDays) * 86400
}

func (s *Settings) MaxCacheSizeMB() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxCacheSizeMB
}

func (s *Settings) MaxJournalSizeMB() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxJournalSizeMB
}

func (s *Settings) ChancesOfAutoCleanup() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chancesOfAutoCleanup
}

func (s *Settings) MinValueLengthForCompression() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minValueLengthForCompression
}

func (s *Settings) MaxPartitionNameLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxPartitionNameLength
}

func (s *Settings) MaxKeyNameLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxKeyNameLength
}

func (s *Settings) PoolSize() (min, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minPoolSize, s.maxPoolSize
}
