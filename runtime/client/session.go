package client

import (
	"context"
	"database/sql"
	"errors"
	"maps"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
	"github.com/satishbabariya/godal/runtime/pool"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

// Session runs statements on one checked out connection. It is only valid
// inside the callback it was passed to.
type Session struct {
	c    *Client
	conn *pool.Conn
}

// Select runs sel and materializes its rows.
func (s *Session) Select(ctx context.Context, sel ast.Select) (*Rows, error) {
	stmt, err := s.c.dialect.RenderSelect(sel)
	if err != nil {
		return nil, err
	}
	var rows *Rows
	err = s.run(ctx, "select", sourceName(sel), stmt, func(ctx context.Context) error {
		r, err := s.conn.Query(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		rows, err = collect(r)
		return err
	})
	return rows, err
}

// Count returns the number of rows sel matches, ignoring its pagination.
func (s *Session) Count(ctx context.Context, sel ast.Select) (int64, error) {
	stmt, err := s.c.dialect.RenderCount(sel)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.run(ctx, "count", sourceName(sel), stmt, func(ctx context.Context) error {
		r, err := s.conn.Query(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		defer r.Close()
		if !r.Next() {
			if err := r.Err(); err != nil {
				return err
			}
			return errors.New("count returned no row")
		}
		if err := r.Scan(&n); err != nil {
			return err
		}
		return r.Close()
	})
	return n, err
}

// Insert inserts one row and returns its key. Fields left out of values
// that have a default generator get a generated value; static defaults are
// left to the database.
func (s *Session) Insert(ctx context.Context, table string, values map[string]any) (any, error) {
	t, err := s.c.table(table)
	if err != nil {
		return nil, err
	}
	values = maps.Clone(values)
	if values == nil {
		values = make(map[string]any)
	}
	for _, f := range t.Fields() {
		if _, set := values[f.Name()]; !set && f.HasGenerator() {
			values[f.Name()] = f.Generate()
		}
	}
	stmt, err := s.c.dialect.RenderInsert(t, values)
	if err != nil {
		return nil, err
	}

	key := returnedKey(t)
	if key == nil {
		return nil, s.run(ctx, "insert", t.Name(), stmt, func(ctx context.Context) error {
			_, err := s.conn.Exec(ctx, stmt.SQL, stmt.Args...)
			return err
		})
	}
	if v, ok := values[key.Name()]; ok && v != nil {
		return v, s.run(ctx, "insert", t.Name(), stmt, func(ctx context.Context) error {
			return s.insertReturning(ctx, stmt, key, new(any))
		})
	}

	var id any
	err = s.run(ctx, "insert", t.Name(), stmt, func(ctx context.Context) error {
		return s.insertReturning(ctx, stmt, key, &id)
	})
	return id, err
}

// insertReturning runs an insert and stores the generated key in id, the
// way the dialect reports it.
func (s *Session) insertReturning(ctx context.Context, stmt sqlgen.Statement, key *schema.Field, id *any) error {
	switch s.c.dialect.IDRetrieval() {
	case sqlgen.ReturnedRow:
		rows, err := s.conn.Query(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			if err := rows.Scan(id); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return rows.Close()

	case sqlgen.OutParam:
		dest := keyDest(key)
		args := append(stmt.Args, sql.Out{Dest: dest})
		if _, err := s.conn.Exec(ctx, stmt.SQL, args...); err != nil {
			return err
		}
		switch d := dest.(type) {
		case *int64:
			*id = *d
		case *string:
			*id = *d
		}
		return nil

	default:
		res, err := s.conn.Exec(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		if key.IsIdentity() || key.Type().Family() == types.FamilyNumeric {
			n, err := res.LastInsertId()
			if err != nil {
				return err
			}
			*id = n
		}
		return nil
	}
}

// returnedKey is the field an insert reports: the identity field, or the
// sole primary key field.
func returnedKey(t *schema.Table) *schema.Field {
	if id := t.Identity(); id != nil {
		return id
	}
	if pk := t.PrimaryKey(); len(pk) == 1 {
		return t.Field(pk[0])
	}
	return nil
}

func keyDest(f *schema.Field) any {
	if f.IsIdentity() || f.Type().Family() == types.FamilyNumeric {
		return new(int64)
	}
	return new(string)
}

// Update sets values on the rows of table matching where and returns the
// number of rows changed.
func (s *Session) Update(ctx context.Context, table string, where ast.Expr, values map[string]any) (int64, error) {
	t, err := s.c.table(table)
	if err != nil {
		return 0, err
	}
	stmt, err := s.c.dialect.RenderUpdate(t, where, values)
	if err != nil {
		return 0, err
	}
	return s.affected(ctx, "update", t.Name(), stmt)
}

// Delete removes the rows of table matching where. A filter is required.
func (s *Session) Delete(ctx context.Context, table string, where ast.Expr) (int64, error) {
	t, err := s.c.table(table)
	if err != nil {
		return 0, err
	}
	stmt, err := s.c.dialect.RenderDelete(t, where)
	if err != nil {
		return 0, err
	}
	return s.affected(ctx, "delete", t.Name(), stmt)
}

func (s *Session) affected(ctx context.Context, op, table string, stmt sqlgen.Statement) (int64, error) {
	var n int64
	err := s.run(ctx, op, table, stmt, func(ctx context.Context) error {
		res, err := s.conn.Exec(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Exec runs a compiled statement.
func (s *Session) Exec(ctx context.Context, stmt sqlgen.Statement) (driver.Result, error) {
	var res driver.Result
	err := s.run(ctx, "exec", "", stmt, func(ctx context.Context) (err error) {
		res, err = s.conn.Exec(ctx, stmt.SQL, stmt.Args...)
		return err
	})
	return res, err
}

func sourceName(sel ast.Select) string {
	if src := sel.ResolvedSources(); len(src) > 0 {
		return src[0].Name()
	}
	return ""
}
