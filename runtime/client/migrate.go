package client

import (
	"context"

	"github.com/satishbabariya/godal/config"
	"github.com/satishbabariya/godal/internal/debug"
	"github.com/satishbabariya/godal/migrate/executor"
	"github.com/satishbabariya/godal/migrate/history"
	"github.com/satishbabariya/godal/migrate/introspect"
	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/migrate/planner"
	"github.com/satishbabariya/godal/runtime/pool"
)

// MigrateOptions tune Migrate.
type MigrateOptions struct {
	planner.Options
	// AllowNonTransactional applies plans the backend cannot run in a
	// transaction.
	AllowNonTransactional bool
}

// Plan diffs the registry against the live database without changing it.
func (c *Client) Plan(ctx context.Context, opts planner.Options) (*plan.Plan, error) {
	var p *plan.Plan
	err := c.pool.Do(ctx, func(conn *pool.Conn) (err error) {
		p, err = c.plan(ctx, conn, opts)
		return err
	})
	return p, err
}

// Migrate plans and applies the changes that reconcile the live database
// with the registry. Destructive changes the mode does not allow are
// returned as pending, never applied.
func (c *Client) Migrate(ctx context.Context, opts MigrateOptions) (*executor.Result, error) {
	var res *executor.Result
	err := c.pool.Do(ctx, func(conn *pool.Conn) error {
		p, err := c.plan(ctx, conn, opts.Options)
		if err != nil {
			return err
		}
		exec, err := executor.New(c.dialect)
		if err != nil {
			return err
		}
		res, err = exec.Apply(ctx, conn, p, executor.Options{
			AllowNonTransactional: opts.AllowNonTransactional,
			Mode:                  opts.Mode.String(),
		})
		return err
	})
	return res, err
}

// History lists the migrations applied to the database, oldest first.
func (c *Client) History(ctx context.Context) ([]history.Record, error) {
	store, err := history.New(c.dialect)
	if err != nil {
		return nil, err
	}
	var records []history.Record
	err = c.pool.Do(ctx, func(conn *pool.Conn) error {
		if err := store.Ensure(ctx, conn); err != nil {
			return err
		}
		records, err = store.List(ctx, conn)
		return err
	})
	return records, err
}

// Introspect describes the live database.
func (c *Client) Introspect(ctx context.Context) ([]*introspect.TableDescription, error) {
	var tables []*introspect.TableDescription
	err := c.pool.Do(ctx, func(conn *pool.Conn) error {
		in, err := introspect.New(c.dialect.Name(), conn)
		if err != nil {
			return err
		}
		tables, err = introspect.Snapshot(ctx, in)
		return err
	})
	return tables, err
}

func (c *Client) plan(ctx context.Context, conn *pool.Conn, opts planner.Options) (*plan.Plan, error) {
	in, err := introspect.New(c.dialect.Name(), conn)
	if err != nil {
		return nil, err
	}
	return planner.New(c.dialect, in).Plan(ctx, c.reg, opts)
}

// ensureMigrated reconciles the schema once before the first statement
// when the configuration asks for it. A failed attempt is retried by the
// next statement.
func (c *Client) ensureMigrated(ctx context.Context) error {
	if c.cfg.Migrate == config.MigrateOff || c.cfg.Migrate == "" {
		return nil
	}
	c.migrateMu.Lock()
	defer c.migrateMu.Unlock()
	if c.migrated {
		return nil
	}

	mode := planner.Additive
	if c.cfg.Migrate == config.MigrateDestructive {
		mode = planner.Destructive
	}
	log := debug.Component("client")
	if !c.dialect.TransactionalDDL() {
		log.Warn("schema changes are applied without a transaction", "dialect", c.dialect.Name())
	}
	res, err := c.Migrate(ctx, MigrateOptions{
		Options:               planner.Options{Mode: mode},
		AllowNonTransactional: true,
	})
	if err != nil {
		return err
	}
	for _, step := range res.Pending {
		log.Warn("destructive change not applied", "step", step.String())
	}
	if len(res.Applied) > 0 {
		log.Info("schema reconciled", "steps", len(res.Applied))
	}
	c.migrated = true
	return nil
}
