package store

import "errors"

// ErrPoolClosed is returned by Acquire once Close has run.
var ErrPoolClosed = errors.New("store: pool closed")

// ErrNotFound names a lookup miss. Engine's lookups do not return it: they
// report a miss through their found result with a nil error.
var ErrNotFound = errors.New("store: not found")
