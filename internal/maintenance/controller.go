// Package maintenance implements the soft/hard clear and vacuum protocol,
// plus a probabilistic automatic-cleanup trigger (chances_of_auto_cleanup),
// fired as a detached goroutine off the write path rather than a
// request-counter threshold — grounded on Krishna8167-tempuscache's janitor
// sweep and steveyegge-beads's blocked_cache eviction pass, adapted from a
// fixed-interval ticker to an on-write dice roll.
package maintenance

import (
	"context"
	"math/rand"
	"sync"
)

// Store is the subset of internal/store.Engine the controller depends on.
// Declared as an interface here so maintenance never imports the store
// package's concrete PooledConn plumbing, only the operations it drives.
type Store interface {
	DeleteMany(ctx context.Context, partition *string, ignoreExpiry bool, now int64) (int64, error)
	IncrementalVacuum(ctx context.Context) error
	Vacuum(ctx context.Context) error
}

// ErrorLogger receives failures from the detached auto-cleanup goroutine,
// which has no caller left to return an error to by the time it runs.
type ErrorLogger func(op string, err error)

// Controller drives soft/hard clears, manual vacuum, and the probabilistic
// auto-cleanup dispatch.
type Controller struct {
	store Store
	log   ErrorLogger

	mu  sync.Mutex
	rng *rand.Rand

	wg sync.WaitGroup
}

// New builds a Controller. A nil logger discards auto-cleanup failures.
func New(store Store, seed int64, log ErrorLogger) *Controller {
	if log == nil {
		log = func(string, error) {}
	}
	return &Controller{
		store: store,
		log:   log,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// SoftClean removes only expired rows in partition (nil = every partition).
func (c *Controller) SoftClean(ctx context.Context, partition *string, now int64) (int64, error) {
	return c.store.DeleteMany(ctx, partition, false, now)
}

// HardClear removes every row in partition (nil = every partition),
// regardless of expiry.
func (c *Controller) HardClear(ctx context.Context, partition *string, now int64) (int64, error) {
	return c.store.DeleteMany(ctx, partition, true, now)
}

// IncrementalVacuum reclaims free pages without the full exclusive lock a
// plain VACUUM takes.
func (c *Controller) IncrementalVacuum(ctx context.Context) error {
	return c.store.IncrementalVacuum(ctx)
}

// Vacuum runs a full, explicit VACUUM. Reserved for the manual maintenance
// call — never dispatched by MaybeAutoClean.
func (c *Controller) Vacuum(ctx context.Context) error {
	return c.store.Vacuum(ctx)
}

// MaybeAutoClean rolls the dice against chance (0..1) and, on a hit,
// dispatches a detached soft clean over partition. It never blocks the
// caller: the sweep runs on its own goroutine, and any failure only
// reaches the configured ErrorLogger.
func (c *Controller) MaybeAutoClean(partition *string, now int64, chance float64) {
	if chance <= 0 {
		return
	}
	c.mu.Lock()
	roll := c.rng.Float64()
	c.mu.Unlock()
	if roll >= chance {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.store.DeleteMany(context.Background(), partition, false, now); err != nil {
			c.log("auto_clean", err)
		}
	}()
}

// Wait blocks until every dispatched auto-cleanup goroutine has finished.
// Close uses this to avoid leaking work past Cache shutdown.
func (c *Controller) Wait() {
	c.wg.Wait()
}
