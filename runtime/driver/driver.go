// Package driver defines what the connection pool needs from a database
// client library. The pool never talks to a backend directly.
package driver

import (
	"context"
	"database/sql"
)

// Result is the outcome of a statement that returns no rows.
type Result = sql.Result

// Rows is a forward-only result cursor. *sql.Rows satisfies it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Queryer runs statements returning rows.
type Queryer interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Execer runs statements returning no rows.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

// Session is one physical connection. It is used by one goroutine at a
// time and runs at most one transaction.
type Session interface {
	Queryer
	Execer

	// Begin starts a transaction; later statements run inside it until
	// Commit or Rollback.
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTx() bool

	Ping(ctx context.Context) error
	Close() error
}

// Driver opens sessions against one database.
type Driver interface {
	// Dialect names the SQL dialect spoken by the backend.
	Dialect() string
	Open(ctx context.Context) (Session, error)
	// IsDisconnect reports whether err means the session is unusable and
	// a reconnect may succeed.
	IsDisconnect(err error) bool
	Close() error
}
