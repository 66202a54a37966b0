// Package sqldb implements the driver contract on top of database/sql. It
// registers every backend's database/sql driver and turns connection URIs
// into driver-specific data source names.
package sqldb

import (
	"context"
	"database/sql"
	"errors"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/nakagami/firebirdsql"
	_ "github.com/sijms/go-ora/v2"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/runtime/driver"
)

// Driver hands out sessions that each own one *sql.Conn. The *sql.DB
// underneath is only a dialer: pooling is done by runtime/pool.
type Driver struct {
	target Target
	db     *sql.DB
}

var _ driver.Driver = (*Driver)(nil)

// Open parses uri and prepares a driver. No connection is made.
func Open(uri string) (*Driver, error) {
	target, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return OpenTarget(target)
}

// OpenTarget prepares a driver for an already parsed target.
func OpenTarget(target Target) (*Driver, error) {
	db, err := sql.Open(target.DriverName, target.DSN)
	if err != nil {
		return nil, &dalerr.ConnectionError{Op: "open " + target.Dialect, Cause: err}
	}
	// Sessions are long lived and closed explicitly by the pool.
	db.SetMaxIdleConns(0)
	return &Driver{target: target, db: db}, nil
}

// Dialect names the SQL dialect of the target.
func (d *Driver) Dialect() string { return d.target.Dialect }

// Open opens a new physical connection.
func (d *Driver) Open(ctx context.Context) (driver.Session, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &session{conn: conn}, nil
}

// IsDisconnect classifies err with the backend error types.
func (d *Driver) IsDisconnect(err error) bool { return IsDisconnect(err) }

// Close releases the dialer.
func (d *Driver) Close() error { return d.db.Close() }

// session is one *sql.Conn plus its open transaction, if any.
type session struct {
	conn *sql.Conn
	tx   *sql.Tx
}

func (s *session) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.tx != nil {
		rows, err = s.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.conn.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *session) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	if s.tx != nil {
		return s.tx.ExecContext(ctx, query, args...)
	}
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return errors.New("transaction already open")
	}
	// The transaction must outlive the statement context that opened it.
	tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

func (s *session) Commit() error {
	if s.tx == nil {
		return sql.ErrTxDone
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return sql.ErrTxDone
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

func (s *session) InTx() bool { return s.tx != nil }

func (s *session) Ping(ctx context.Context) error { return s.conn.PingContext(ctx) }

func (s *session) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.conn.Close()
}

// DB adapts a *sql.DB to the Queryer and Execer contracts, for callers that
// manage their own database handle.
type DB struct {
	*sql.DB
}

// Query runs query on any connection of the handle.
func (d DB) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec runs a statement on any connection of the handle.
func (d DB) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	return d.DB.ExecContext(ctx, query, args...)
}
