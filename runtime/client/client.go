// Package client ties a schema registry, a dialect and a connection pool
// together into the database handle applications use.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/satishbabariya/godal/config"
	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
	"github.com/satishbabariya/godal/runtime/driver/sqldb"
	"github.com/satishbabariya/godal/runtime/pool"
	"github.com/satishbabariya/godal/schema"
)

// Client is a database handle. It is safe for concurrent use.
type Client struct {
	cfg     config.Config
	reg     *schema.Registry
	dialect sqlgen.Dialect
	pool    *pool.Pool

	middlewares []Middleware

	// Reconciliation state for config.Config.Migrate.
	migrateMu sync.Mutex
	migrated  bool
}

// Open validates cfg, finalizes reg if needed and prepares a pool for the
// database named by cfg.URI. No connection is made until the first
// statement runs.
func Open(cfg config.Config, reg *schema.Registry) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	drv, err := sqldb.Open(cfg.URI)
	if err != nil {
		return nil, err
	}
	c, err := OpenDriver(drv, cfg, reg)
	if err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	return c, nil
}

// OpenDriver is Open over an existing driver. cfg.URI is not used.
func OpenDriver(drv driver.Driver, cfg config.Config, reg *schema.Registry) (*Client, error) {
	if !reg.Finalized() {
		if err := reg.Finalize(); err != nil {
			return nil, err
		}
	}
	d, err := sqlgen.New(drv.Dialect(), sqlgen.Options{ServerVersion: cfg.ServerVersion})
	if err != nil {
		return nil, err
	}
	pcfg := pool.DefaultConfig()
	pcfg.Size = cfg.PoolSize
	pcfg.CheckoutTimeout = cfg.CheckoutTimeout
	pcfg.StatementTimeout = cfg.StatementTimeout
	pcfg.ReconnectAttempts = cfg.ReconnectAttempts
	p, err := pool.New(drv, d, pcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dalerr.ErrConfig, err)
	}
	return &Client{cfg: cfg, reg: reg, dialect: d, pool: p}, nil
}

// Use appends a middleware. It must be called before the client is shared.
func (c *Client) Use(m Middleware) {
	c.middlewares = append(c.middlewares, m)
}

// Dialect returns the SQL dialect of the database.
func (c *Client) Dialect() sqlgen.Dialect { return c.dialect }

// Registry returns the schema the client was opened with.
func (c *Client) Registry() *schema.Registry { return c.reg }

// Stats returns connection pool statistics.
func (c *Client) Stats() pool.Stats { return c.pool.Stats() }

// Close closes the pool.
func (c *Client) Close() error { return c.pool.Close() }

// Session runs fn on one checked out connection outside a transaction.
func (c *Client) Session(ctx context.Context, fn func(*Session) error) error {
	if err := c.ensureMigrated(ctx); err != nil {
		return err
	}
	return c.pool.Do(ctx, func(conn *pool.Conn) error {
		return fn(&Session{c: c, conn: conn})
	})
}

// Select runs sel and materializes its rows.
func (c *Client) Select(ctx context.Context, sel ast.Select) (*Rows, error) {
	var rows *Rows
	err := c.Session(ctx, func(s *Session) (err error) {
		rows, err = s.Select(ctx, sel)
		return err
	})
	return rows, err
}

// Count returns the number of rows sel matches, ignoring its pagination.
func (c *Client) Count(ctx context.Context, sel ast.Select) (int64, error) {
	var n int64
	err := c.Session(ctx, func(s *Session) (err error) {
		n, err = s.Count(ctx, sel)
		return err
	})
	return n, err
}

// Insert inserts one row into table and returns its key, or nil when the
// table has no single-column key.
func (c *Client) Insert(ctx context.Context, table string, values map[string]any) (any, error) {
	var id any
	err := c.Session(ctx, func(s *Session) (err error) {
		id, err = s.Insert(ctx, table, values)
		return err
	})
	return id, err
}

// Update sets values on the rows of table matching where and returns the
// number of rows changed.
func (c *Client) Update(ctx context.Context, table string, where ast.Expr, values map[string]any) (int64, error) {
	var n int64
	err := c.Session(ctx, func(s *Session) (err error) {
		n, err = s.Update(ctx, table, where, values)
		return err
	})
	return n, err
}

// Delete removes the rows of table matching where.
func (c *Client) Delete(ctx context.Context, table string, where ast.Expr) (int64, error) {
	var n int64
	err := c.Session(ctx, func(s *Session) (err error) {
		n, err = s.Delete(ctx, table, where)
		return err
	})
	return n, err
}

// Exec runs a compiled statement.
func (c *Client) Exec(ctx context.Context, stmt sqlgen.Statement) (driver.Result, error) {
	var res driver.Result
	err := c.Session(ctx, func(s *Session) (err error) {
		res, err = s.Exec(ctx, stmt)
		return err
	})
	return res, err
}

func (c *Client) table(name string) (*schema.Table, error) {
	t := c.reg.Table(name)
	if t == nil {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}
