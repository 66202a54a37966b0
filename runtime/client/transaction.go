package client

import (
	"context"

	"github.com/satishbabariya/godal/runtime/pool"
)

// Transaction runs fn in a transaction. It is committed when fn returns
// nil and rolled back when fn fails or panics.
func (c *Client) Transaction(ctx context.Context, fn func(*Session) error) error {
	if err := c.ensureMigrated(ctx); err != nil {
		return err
	}
	return c.pool.Transaction(ctx, func(conn *pool.Conn) error {
		return fn(&Session{c: c, conn: conn})
	})
}

// Transaction runs fn in a nested transaction. Where the dialect has
// savepoints a failure of fn reverts only the work done inside it;
// otherwise the outer transaction is marked for rollback.
func (s *Session) Transaction(ctx context.Context, fn func(*Session) error) error {
	return s.conn.Transaction(ctx, func(*pool.Conn) error { return fn(s) })
}

// InTx reports whether the session is inside a transaction.
func (s *Session) InTx() bool { return s.conn.InTx() }
