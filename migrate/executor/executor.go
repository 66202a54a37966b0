// Package executor applies migration plans to a database.
package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/internal/debug"
	"github.com/satishbabariya/godal/migrate/history"
	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
)

// DefaultLockName names the advisory lock held while a plan is applied.
const DefaultLockName = "godal_migrate"

// Conn is the connection a plan is applied on. It must stay checked out
// for the whole run, since advisory locks belong to the session.
type Conn interface {
	driver.Queryer
	driver.Execer
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
}

// Options tune an Apply run.
type Options struct {
	// AllowNonTransactional acknowledges that steps the backend cannot run
	// in a transaction are applied one by one, without rollback.
	AllowNonTransactional bool
	// Mode is recorded in the history table.
	Mode string
	// LockName overrides DefaultLockName.
	LockName string
}

// Result reports what an Apply run did.
type Result struct {
	Applied []plan.Step
	// Pending are the destructive steps the plan did not schedule.
	Pending []plan.Step
	Record  *history.Record
}

// Executor applies plans rendered for one dialect.
type Executor struct {
	dialect sqlgen.Dialect
	history *history.Store
}

// New returns an executor for d.
func New(d sqlgen.Dialect) (*Executor, error) {
	h, err := history.New(d)
	if err != nil {
		return nil, err
	}
	return &Executor{dialect: d, history: h}, nil
}

// History returns the history store the executor records into.
func (e *Executor) History() *history.Store { return e.history }

var (
	locksMu sync.Mutex
	locks   = map[string]*semaphore.Weighted{}
)

// processLock serializes appliers of one lock name within the process.
func processLock(name string) *semaphore.Weighted {
	locksMu.Lock()
	defer locksMu.Unlock()
	l, ok := locks[name]
	if !ok {
		l = semaphore.NewWeighted(1)
		locks[name] = l
	}
	return l
}

// Apply runs the scheduled steps of p. Pending steps are never run. Steps
// the backend cannot run transactionally are refused with a
// *dalerr.NonTransactionalError unless opts acknowledge them.
func (e *Executor) Apply(ctx context.Context, conn Conn, p *plan.Plan, opts Options) (*Result, error) {
	res := &Result{Pending: p.Pending}
	if nonTx := p.NonTransactional(); len(nonTx) > 0 && !opts.AllowNonTransactional {
		steps := make([]string, len(nonTx))
		for i, s := range nonTx {
			steps[i] = s.String()
		}
		return res, &dalerr.NonTransactionalError{Dialect: e.dialect.Name(), Steps: steps}
	}
	if len(p.Steps) == 0 {
		return res, nil
	}

	name := opts.LockName
	if name == "" {
		name = DefaultLockName
	}
	local := processLock(name)
	if err := local.Acquire(ctx, 1); err != nil {
		return res, &dalerr.TimeoutError{Op: "migration lock", Cause: err}
	}
	defer local.Release(1)

	if lock, unlock, ok := e.dialect.AdvisoryLock(name); ok {
		if err := run(ctx, conn, lock); err != nil {
			return res, fmt.Errorf("advisory lock %s: %w", name, err)
		}
		defer func() {
			if err := run(context.WithoutCancel(ctx), conn, unlock); err != nil {
				debug.Component("executor").Warn("advisory unlock failed", "lock", name, "error", err)
			}
		}()
	}

	if err := e.history.Ensure(ctx, conn); err != nil {
		return res, err
	}

	redef, redefines := e.dialect.TableRedefinition()
	redefines = redefines && slices.ContainsFunc(p.Steps, func(s plan.Step) bool {
		_, ok := s.Op.(plan.RedefineTable)
		return ok
	})
	if redefines {
		if _, err := conn.Exec(ctx, redef.Disable); err != nil {
			return res, fmt.Errorf("redefine tables: %w", err)
		}
		defer func() {
			if _, err := conn.Exec(context.WithoutCancel(ctx), redef.Enable); err != nil {
				debug.Component("executor").Warn("restoring foreign keys failed", "error", err)
			}
		}()
	}

	start := time.Now()
	var err error
	if e.dialect.TransactionalDDL() {
		check := ""
		if redefines {
			check = redef.Check
		}
		err = e.applyInTx(ctx, conn, p, opts, res, start, check)
	} else {
		err = e.applyEach(ctx, conn, p, opts, res, start)
	}
	return res, err
}

// applyInTx runs every step and the history record in one transaction. A
// non-empty check query runs after the last step and must return no rows.
func (e *Executor) applyInTx(ctx context.Context, conn Conn, p *plan.Plan, opts Options, res *Result, start time.Time, check string) error {
	if err := conn.Begin(ctx); err != nil {
		return err
	}
	rollback := func(err error) error {
		if rbErr := conn.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	for _, step := range p.Steps {
		if err := e.runStep(ctx, conn, step); err != nil {
			return rollback(err)
		}
	}
	if check != "" {
		if err := noRows(ctx, conn, check); err != nil {
			return rollback(err)
		}
	}
	rec, err := e.history.Record(ctx, conn, p, opts.Mode, time.Since(start))
	if err != nil {
		return rollback(err)
	}
	if err := conn.Commit(); err != nil {
		return err
	}
	res.Applied = p.Steps
	res.Record = rec
	e.logApplied(p.Steps)
	return nil
}

// applyEach runs steps without a transaction. A failure leaves the steps
// before it applied; they are reported in the result.
func (e *Executor) applyEach(ctx context.Context, conn Conn, p *plan.Plan, opts Options, res *Result, start time.Time) error {
	for _, step := range p.Steps {
		if err := e.runStep(ctx, conn, step); err != nil {
			return err
		}
		res.Applied = append(res.Applied, step)
		e.logApplied([]plan.Step{step})
	}
	rec, err := e.history.Record(ctx, conn, p, opts.Mode, time.Since(start))
	if err != nil {
		return err
	}
	res.Record = rec
	return nil
}

func (e *Executor) runStep(ctx context.Context, conn Conn, step plan.Step) error {
	for _, stmt := range step.SQL {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
	}
	return nil
}

func (e *Executor) logApplied(steps []plan.Step) {
	log := debug.Component("executor")
	for _, s := range steps {
		log.Info("migration step applied", "dialect", e.dialect.Name(), "step", s.String())
	}
}

// noRows fails when query returns a row.
func noRows(ctx context.Context, q driver.Queryer, query string) error {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return fmt.Errorf("%s reported a violation", query)
	}
	return rows.Err()
}

// run executes a lock statement. Lock functions return a row that must be
// consumed before the session can be reused.
func run(ctx context.Context, q driver.Queryer, stmt sqlgen.Statement) error {
	rows, err := q.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return err
	}
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
