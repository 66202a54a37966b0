// Package pool provides a bounded pool of driver sessions with lazy
// connection, reconnection and nested transactions.
package pool

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/internal/debug"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
)

// Config holds connection pool configuration.
type Config struct {
	// Size is the maximum number of checked out connections.
	Size int
	// CheckoutTimeout bounds the wait for a free connection.
	CheckoutTimeout time.Duration
	// StatementTimeout bounds each statement (0 = only the caller's context).
	StatementTimeout time.Duration
	// ReconnectAttempts is the number of connection attempts made before a
	// ConnectionError is returned.
	ReconnectAttempts int
	Backoff           Backoff
}

// Backoff is the delay schedule between connection attempts.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	// Jitter adds ±25% randomness to each delay.
	Jitter bool
}

// DefaultConfig returns sensible default pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:              10,
		CheckoutTimeout:   30 * time.Second,
		ReconnectAttempts: 3,
		Backoff: Backoff{
			Initial: 100 * time.Millisecond,
			Max:     5 * time.Second,
			Factor:  2.0,
			Jitter:  true,
		},
	}
}

// Pool manages the sessions of one database.
type Pool struct {
	drv     driver.Driver
	dialect sqlgen.Dialect
	cfg     Config
	sem     *semaphore.Weighted

	mu     sync.Mutex
	idle   []driver.Session
	closed bool

	// Metrics
	inUse      atomic.Int64
	opened     atomic.Int64
	reconnects atomic.Int64
	timeouts   atomic.Int64
	discarded  atomic.Int64
}

// New creates a pool. No connection is opened until a statement runs.
func New(drv driver.Driver, d sqlgen.Dialect, cfg Config) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, errors.New("pool: size must be positive")
	}
	if cfg.CheckoutTimeout <= 0 {
		return nil, errors.New("pool: checkout timeout must be positive")
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = 1
	}
	if cfg.Backoff.Factor < 1 {
		cfg.Backoff.Factor = 1
	}
	return &Pool{
		drv:     drv,
		dialect: d,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.Size)),
	}, nil
}

// Dialect returns the dialect statements on this pool are rendered for.
func (p *Pool) Dialect() sqlgen.Dialect { return p.dialect }

// Acquire checks a connection out. It blocks up to the checkout timeout
// when every connection is in use. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.isClosed() {
		return nil, dalerr.ErrPoolClosed
	}
	wait, cancel := context.WithTimeout(ctx, p.cfg.CheckoutTimeout)
	defer cancel()
	if err := p.sem.Acquire(wait, 1); err != nil {
		if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.timeouts.Add(1)
			return nil, &dalerr.TimeoutError{Op: "checkout", Timeout: p.cfg.CheckoutTimeout, Cause: err}
		}
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, dalerr.ErrPoolClosed
	}
	var s driver.Session
	if n := len(p.idle); n > 0 {
		s = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	p.inUse.Add(1)
	return &Conn{p: p, s: s}, nil
}

// Do runs fn on a checked out connection and releases it afterwards.
func (p *Pool) Do(ctx context.Context, fn func(*Conn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()
	return fn(c)
}

// Transaction runs fn inside a transaction on a checked out connection.
func (p *Pool) Transaction(ctx context.Context, fn func(*Conn) error) error {
	return p.Do(ctx, func(c *Conn) error { return c.Transaction(ctx, fn) })
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// put returns a healthy session to the idle list.
func (p *Pool) put(s driver.Session) {
	p.mu.Lock()
	if !p.closed {
		p.idle = append(p.idle, s)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	_ = s.Close()
}

func (p *Pool) discard(s driver.Session) {
	p.discarded.Add(1)
	_ = s.Close()
}

// connect opens a session, retrying with exponential backoff while the
// driver reports the failure as a disconnect.
func (p *Pool) connect(ctx context.Context, reconnect bool) (driver.Session, error) {
	log := debug.Component("pool")
	delay := p.cfg.Backoff.Initial
	var lastErr error
	for attempt := 1; attempt <= p.cfg.ReconnectAttempts; attempt++ {
		s, err := p.drv.Open(ctx)
		if err == nil {
			p.opened.Add(1)
			if reconnect || attempt > 1 {
				p.reconnects.Add(1)
				log.Info("connection recovered", "dialect", p.drv.Dialect(), "attempts", attempt)
			}
			return s, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, statementError(ctx, "connect", 0, err)
		}
		if !p.drv.IsDisconnect(err) {
			return nil, &dalerr.ConnectionError{Op: "connect", Attempts: attempt, Cause: err}
		}
		if attempt == p.cfg.ReconnectAttempts {
			break
		}
		log.Warn("connection attempt failed", "dialect", p.drv.Dialect(), "attempt", attempt, "error", err)

		wait := delay
		if p.cfg.Backoff.Jitter && delay > 0 {
			spread := int64(delay / 4)
			if spread > 0 {
				wait = delay - time.Duration(spread) + time.Duration(rand.Int64N(2*spread))
			}
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, statementError(ctx, "connect", 0, ctx.Err())
		}
		delay = time.Duration(float64(delay) * p.cfg.Backoff.Factor)
		if p.cfg.Backoff.Max > 0 && delay > p.cfg.Backoff.Max {
			delay = p.cfg.Backoff.Max
		}
	}
	return nil, &dalerr.ConnectionError{Op: "connect", Attempts: p.cfg.ReconnectAttempts, Cause: lastErr}
}

// Stats represents pool statistics.
type Stats struct {
	Size       int
	InUse      int
	Idle       int
	Opened     int64
	Reconnects int64
	Timeouts   int64
	Discarded  int64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return Stats{
		Size:       p.cfg.Size,
		InUse:      int(p.inUse.Load()),
		Idle:       idle,
		Opened:     p.opened.Load(),
		Reconnects: p.reconnects.Load(),
		Timeouts:   p.timeouts.Load(),
		Discarded:  p.discarded.Load(),
	}
}

// Close closes the idle sessions and the driver. Checked out connections
// are closed when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var g errgroup.Group
	for _, s := range idle {
		g.Go(s.Close)
	}
	return errors.Join(g.Wait(), p.drv.Close())
}

// statementError maps a context failure to the error taxonomy: deadlines
// are timeouts, cancellations are returned as is.
func statementError(ctx context.Context, op string, timeout time.Duration, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &dalerr.TimeoutError{Op: op, Timeout: timeout, Cause: cause}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return cause
}
