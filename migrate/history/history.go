// Package history records applied migration plans in a table of the
// migrated database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/satishbabariya/godal/migrate/introspect"
	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

// TableName is the history table. Planners never diff it.
const TableName = "godal_migrations"

// statementSeparator joins the statements of a record.
const statementSeparator = ";\n"

// Record is one applied plan.
type Record struct {
	ID            string
	AppliedAt     time.Time
	Checksum      string
	Statements    []string
	Mode          string
	ExecutionTime time.Duration
}

// Conn is what the store needs from a connection.
type Conn interface {
	driver.Queryer
	driver.Execer
}

// Store reads and writes the history table of one dialect.
type Store struct {
	dialect sqlgen.Dialect
	table   *schema.Table
}

// New declares the history table for d.
func New(d sqlgen.Dialect) (*Store, error) {
	reg := schema.NewRegistry()
	table, err := reg.DefineTable(TableName,
		schema.NewField("id", types.StringType(36), schema.NotNull()),
		schema.NewField("applied_at", types.DateTimeType(), schema.NotNull()),
		schema.NewField("checksum", types.StringType(16), schema.NotNull()),
		schema.NewField("statements", types.TextType()),
		schema.NewField("plan_mode", types.StringType(16)),
		schema.NewField("execution_ms", types.BigIntType()),
		schema.PrimaryKey("id"),
	)
	if err != nil {
		return nil, err
	}
	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return &Store{dialect: d, table: table}, nil
}

// Table returns the declared history table.
func (s *Store) Table() *schema.Table { return s.table }

// Ensure creates the history table unless it exists.
func (s *Store) Ensure(ctx context.Context, conn Conn) error {
	in, err := introspect.New(s.dialect.Name(), conn)
	if err != nil {
		return err
	}
	tables, err := in.ListTables(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(tables, func(name string) bool { return strings.EqualFold(name, TableName) }) {
		return nil
	}
	stmts, err := s.dialect.RenderCreateTable(s.table)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", TableName, err)
		}
	}
	return nil
}

// Checksum fingerprints a statement list.
func Checksum(stmts []string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(stmts, statementSeparator)))
}

// Record writes the scheduled steps of p as one history entry.
func (s *Store) Record(ctx context.Context, conn Conn, p *plan.Plan, mode string, took time.Duration) (*Record, error) {
	stmts := p.SQL()
	rec := &Record{
		ID:            uuid.NewString(),
		AppliedAt:     time.Now().UTC().Truncate(time.Second),
		Checksum:      Checksum(stmts),
		Statements:    stmts,
		Mode:          mode,
		ExecutionTime: took,
	}
	stmt, err := s.dialect.RenderInsert(s.table, map[string]any{
		"id":           rec.ID,
		"applied_at":   rec.AppliedAt,
		"checksum":     rec.Checksum,
		"statements":   strings.Join(stmts, statementSeparator),
		"plan_mode":    rec.Mode,
		"execution_ms": took.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	switch s.dialect.IDRetrieval() {
	case sqlgen.ReturnedRow:
		rows, err := conn.Query(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return nil, fmt.Errorf("record migration: %w", err)
		}
		err = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("record migration: %w", err)
		}
	case sqlgen.OutParam:
		var id string
		args := append(stmt.Args, sql.Out{Dest: &id})
		if _, err := conn.Exec(ctx, stmt.SQL, args...); err != nil {
			return nil, fmt.Errorf("record migration: %w", err)
		}
	default:
		if _, err := conn.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			return nil, fmt.Errorf("record migration: %w", err)
		}
	}
	return rec, nil
}

// List returns every record, oldest first.
func (s *Store) List(ctx context.Context, conn Conn) ([]Record, error) {
	f := s.table.Field
	sel := ast.From(s.table).
		Columns(f("id").Col(), f("applied_at").Col(), f("checksum").Col(),
			f("statements").Col(), f("plan_mode").Col(), f("execution_ms").Col()).
		OrderBy(f("applied_at").Asc(), f("id").Asc())
	stmt, err := s.dialect.RenderSelect(sel)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			statements sql.NullString
			mode       sql.NullString
			ms         sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.AppliedAt, &rec.Checksum, &statements, &mode, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		if statements.String != "" {
			rec.Statements = strings.Split(statements.String, statementSeparator)
		}
		rec.Mode = mode.String
		rec.ExecutionTime = time.Duration(ms.Int64) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
