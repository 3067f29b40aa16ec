package kvlite

import (
	"errors"
	"fmt"
	"sync"
)

// Error kinds, not exception types — cache operations surface only three
// synchronously to the caller. Everything else the storage engine, pool, or
// codec can fail with is folded into ErrInternalStore and swallowed at the
// façade boundary. Open is the one exception: when the store cannot be
// opened it returns an error wrapping ErrInternalStore.
var (
	// ErrInvalidArgument: null/empty partition or key, too many parent
	// keys, non-serializable value, unknown read mode. Nothing is written.
	ErrInvalidArgument = errors.New("kvlite: invalid argument")

	// ErrDisposed: operation on a cache that has already been closed.
	ErrDisposed = errors.New("kvlite: cache disposed")

	// ErrNotSupported: operation unsupported by the configured backend
	// (e.g. peek on a future backend declaring can_peek = false).
	ErrNotSupported = errors.New("kvlite: not supported")

	// ErrInternalStore: any failure from the SQL engine, codec, or pool.
	// Never returned by cache operations — see swallow() in kvlite.go.
	// Open returns it wrapped when the store cannot be opened.
	ErrInternalStore = errors.New("kvlite: internal store error")
)

// wrapf attaches operation context to an internal store failure, the same
// fmt.Errorf("%s: %w", op, err) convention steveyegge-beads's
// sqlite.wrapDBError uses.
func wrapf(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrInternalStore, err)
}

// errSlot is a thread-safe "last error" diagnostic read: internal failures
// are recorded here for diagnostic inspection and cleared on the next
// operation that completes without error.
type errSlot struct {
	mu  sync.Mutex
	err error
}

func (s *errSlot) set(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *errSlot) clear() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

func (s *errSlot) get() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
