package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/runtime/driver"
)

// ErrNoTransaction is returned by Commit and Rollback outside a transaction.
var ErrNoTransaction = errors.New("pool: no transaction in progress")

// ErrRollbackOnly is returned when committing a transaction whose joined
// inner transaction was rolled back. The whole transaction is rolled back.
var ErrRollbackOnly = errors.New("pool: transaction marked rollback-only")

// Conn is a checked out connection. It must be used by one goroutine at a
// time and released exactly once; extra Release calls are no-ops.
type Conn struct {
	p        *Pool
	s        driver.Session
	released atomic.Bool

	// Transaction nesting. frames[0] is the outer transaction.
	frames       []frame
	spSeq        int
	rollbackOnly bool
}

type frame struct {
	savepoint string
	release   string
	rollback  string
}

// session returns the connection's session, opening it on first use.
func (c *Conn) session(ctx context.Context, reconnect bool) (driver.Session, error) {
	if c.released.Load() {
		return nil, dalerr.ErrConnReleased
	}
	if c.s != nil {
		return c.s, nil
	}
	s, err := c.p.connect(ctx, reconnect)
	if err != nil {
		return nil, err
	}
	c.s = s
	return s, nil
}

// drop closes the session after a failure. An open transaction is lost.
func (c *Conn) drop() {
	if c.s == nil {
		return
	}
	c.p.discard(c.s)
	c.s = nil
	c.frames = nil
	c.rollbackOnly = false
}

// statement runs fn with the statement deadline applied. A disconnect
// outside a transaction reconnects and runs fn once more. The returned
// cancel func must be called once the statement's results are consumed.
func (c *Conn) statement(ctx context.Context, op string, fn func(context.Context, driver.Session) error) (context.CancelFunc, error) {
	s, err := c.session(ctx, false)
	if err != nil {
		return nil, err
	}
	sctx, cancel := ctx, context.CancelFunc(func() {})
	if t := c.p.cfg.StatementTimeout; t > 0 {
		sctx, cancel = context.WithTimeout(ctx, t)
	}

	err = fn(sctx, s)
	if err == nil {
		return cancel, nil
	}
	if sctx.Err() != nil {
		cancel()
		c.drop()
		if errors.Is(sctx.Err(), context.DeadlineExceeded) {
			c.p.timeouts.Add(1)
		}
		return nil, statementError(sctx, op, c.p.cfg.StatementTimeout, err)
	}
	if !c.p.drv.IsDisconnect(err) {
		cancel()
		return nil, err
	}

	inTx := c.InTx()
	c.drop()
	if inTx {
		cancel()
		return nil, &dalerr.ConnectionError{Op: op, Attempts: 1, Cause: err}
	}
	if s, err = c.session(sctx, true); err != nil {
		cancel()
		return nil, err
	}
	if err := fn(sctx, s); err != nil {
		cancel()
		if c.p.drv.IsDisconnect(err) {
			c.drop()
			return nil, &dalerr.ConnectionError{Op: op, Attempts: 1, Cause: err}
		}
		return nil, err
	}
	return cancel, nil
}

// Exec runs a statement that returns no rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	var res driver.Result
	cancel, err := c.statement(ctx, "exec", func(ctx context.Context, s driver.Session) error {
		var err error
		res, err = s.Exec(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	cancel()
	return res, nil
}

// Query runs a statement that returns rows. The statement deadline stays
// in force until the rows are closed.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	var rows driver.Rows
	cancel, err := c.statement(ctx, "query", func(ctx context.Context, s driver.Session) error {
		var err error
		rows, err = s.Query(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &cancelRows{Rows: rows, cancel: cancel}, nil
}

type cancelRows struct {
	driver.Rows
	cancel context.CancelFunc
}

func (r *cancelRows) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}

// InTx reports whether a transaction is open on the connection.
func (c *Conn) InTx() bool { return len(c.frames) > 0 }

// Begin starts a transaction. Inside an open transaction it creates a
// savepoint, or joins the outer transaction when the dialect has none.
func (c *Conn) Begin(ctx context.Context) error {
	if !c.InTx() {
		cancel, err := c.statement(ctx, "begin", func(ctx context.Context, s driver.Session) error {
			return s.Begin(ctx)
		})
		if err != nil {
			return err
		}
		cancel()
		c.frames = append(c.frames, frame{})
		c.rollbackOnly = false
		return nil
	}

	d := c.p.dialect
	if d == nil || !d.SupportsSavepoints() {
		c.frames = append(c.frames, frame{})
		return nil
	}
	c.spSeq++
	name := fmt.Sprintf("sp_%d", c.spSeq)
	create, release, rollback := d.Savepoint(name)
	if _, err := c.Exec(ctx, create); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	c.frames = append(c.frames, frame{savepoint: name, release: release, rollback: rollback})
	return nil
}

// Commit commits the innermost transaction.
func (c *Conn) Commit() error {
	if c.released.Load() {
		return dalerr.ErrConnReleased
	}
	if !c.InTx() {
		return ErrNoTransaction
	}
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]

	if len(c.frames) > 0 {
		if top.release == "" {
			return nil
		}
		_, err := c.Exec(context.Background(), top.release)
		return err
	}
	if c.rollbackOnly {
		c.rollbackOnly = false
		if err := c.s.Rollback(); err != nil {
			return errors.Join(ErrRollbackOnly, err)
		}
		return ErrRollbackOnly
	}
	if err := c.s.Commit(); err != nil {
		if c.p.drv.IsDisconnect(err) {
			c.drop()
			return &dalerr.ConnectionError{Op: "commit", Attempts: 1, Cause: err}
		}
		return err
	}
	return nil
}

// Rollback rolls back the innermost transaction. A joined inner
// transaction marks the outer one rollback-only.
func (c *Conn) Rollback() error {
	if c.released.Load() {
		return dalerr.ErrConnReleased
	}
	if !c.InTx() {
		return ErrNoTransaction
	}
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]

	if len(c.frames) > 0 {
		if top.savepoint == "" {
			c.rollbackOnly = true
			return nil
		}
		_, err := c.Exec(context.Background(), top.rollback)
		return err
	}
	c.rollbackOnly = false
	if err := c.s.Rollback(); err != nil {
		c.drop()
		return err
	}
	return nil
}

// Transaction runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise. Called inside a transaction it nests.
func (c *Conn) Transaction(ctx context.Context, fn func(*Conn) error) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = c.Rollback()
			panic(r)
		}
	}()
	if err := fn(c); err != nil {
		if rbErr := c.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return c.Commit()
}

// Release returns the connection to the pool. An open transaction is
// rolled back; a session that cannot be rolled back is closed.
func (c *Conn) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	defer c.p.sem.Release(1)
	defer c.p.inUse.Add(-1)

	s := c.s
	c.s = nil
	if s == nil {
		return
	}
	if len(c.frames) > 0 || s.InTx() {
		c.frames = nil
		if err := s.Rollback(); err != nil {
			c.p.discard(s)
			return
		}
	}
	c.p.put(s)
}
