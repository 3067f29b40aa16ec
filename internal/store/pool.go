package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// PooledConn bundles a dedicated *sql.Conn with its prepared statement set.
// Callers never share a PooledConn across goroutines; Acquire hands out
// exclusive ownership until Release.
type PooledConn struct {
	conn  *sql.Conn
	stmts *stmtSet
	pool  *Pool
}

// Stmts exposes the prepared statement set for the engine layer.
func (p *PooledConn) Stmts() *stmtSet { return p.stmts }

// Release returns the connection to its pool. A non-nil err means the
// connection is considered unhealthy and is destroyed instead of recycled.
func (p *PooledConn) Release(err error) {
	p.pool.release(p, err)
}

// Pool is a bounded connection/statement pool: a fixed number of dedicated
// connections (never sql.DB's own built-in pool), each pre-armed with its
// own prepared statement set, checked out through a semaphore so callers
// block rather than spawn unbounded connections under load.
type Pool struct {
	mu     sync.Mutex
	db     *sql.DB
	dsn    string
	min    int
	max    int
	sem    chan struct{}
	idle   []*PooledConn
	cfg    PragmaConfig
	closed bool
}

// NewPool opens the backing *sql.DB, bootstraps the schema, pre-warms min
// connections, and returns a pool bounded at max concurrent checkouts.
func NewPool(ctx context.Context, dsn string, min, max int, cfg PragmaConfig) (*Pool, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", dsn, err)
	}
	// The pool itself enforces the bound; sql.DB must never silently grow
	// its own separate internal pool behind our backs.
	db.SetMaxOpenConns(max)
	db.SetMaxIdleConns(max)

	if err := Bootstrap(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	p := &Pool{
		db:  db,
		dsn: dsn,
		min: min,
		max: max,
		sem: make(chan struct{}, max),
		cfg: cfg,
	}

	for i := 0; i < min; i++ {
		pc, err := p.newConn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("prewarm connection %d: %w", i, err)
		}
		p.idle = append(p.idle, pc)
	}

	return p, nil
}

// newConn opens a dedicated connection (never sql.DB's ambient pool),
// applies the pragma contract, and prepares the full statement set.
func (p *Pool) newConn(ctx context.Context) (*PooledConn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire dedicated connection: %w", err)
	}
	if err := applyPragmas(ctx, conn, p.cfg); err != nil {
		conn.Close()
		return nil, err
	}
	stmts, err := prepareStmtSet(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &PooledConn{conn: conn, stmts: stmts, pool: p}, nil
}

// Acquire blocks on the bounding semaphore, then hands back an idle
// connection or opens a fresh one up to max.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		pc := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return pc, nil
	}
	p.mu.Unlock()

	pc, err := p.newConn(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	return pc, nil
}

// release is invoked by PooledConn.Release. A non-nil err destroys the
// connection rather than recycling a possibly-poisoned one.
func (p *Pool) release(pc *PooledConn, err error) {
	defer func() { <-p.sem }()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || err != nil {
		pc.stmts.Close()
		pc.conn.Close()
		return
	}
	p.idle = append(p.idle, pc)
}

// Close closes every idle connection and the backing *sql.DB. Connections
// still checked out are the caller's responsibility to Release first.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	for _, pc := range p.idle {
		pc.stmts.Close()
		pc.conn.Close()
	}
	p.idle = nil
	p.mu.Unlock()
	return p.db.Close()
}
