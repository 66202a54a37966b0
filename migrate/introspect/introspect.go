// Package introspect reads the live schema of a database into a
// backend-neutral description the migration planner diffs against.
package introspect

import (
	"context"
	"fmt"

	"github.com/satishbabariya/godal/runtime/driver"
)

// Column is a live column. Type is the backend's native spelling.
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	Default       *string
	AutoIncrement bool
	PrimaryKey    bool
}

// Index is a live index. Constraint marks indexes that back a primary key,
// unique or foreign key constraint.
type Index struct {
	Name       string
	Columns    []string
	Unique     bool
	Constraint bool
}

// ForeignKey is a live foreign key constraint.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
}

// TableDescription is everything the planner knows about a live table.
type TableDescription struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	ForeignKeys []ForeignKey
	PrimaryKey  []string
}

// Column looks a column up by name.
func (t *TableDescription) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Index looks an index up by name.
func (t *TableDescription) Index(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	return nil
}

// Introspector reads the live schema.
type Introspector interface {
	// ListTables returns the user tables in name order.
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, name string) (*TableDescription, error)
}

// New returns the introspector of a dialect reading through q.
func New(dialect string, q driver.Queryer) (Introspector, error) {
	switch dialect {
	case "sqlite":
		return NewSQLite(q), nil
	case "postgres":
		return NewPostgres(q), nil
	case "cockroachdb":
		return NewCockroach(q), nil
	case "mysql":
		return NewMySQL(q), nil
	case "mssql":
		return NewMSSQL(q), nil
	case "oracle":
		return NewOracle(q), nil
	case "firebird":
		return NewFirebird(q), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, dialect)
}

// Snapshot describes every live table.
func Snapshot(ctx context.Context, in Introspector) ([]*TableDescription, error) {
	names, err := in.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*TableDescription, 0, len(names))
	for _, name := range names {
		desc, err := in.DescribeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// catalog is the per-backend part of an introspector.
type catalog interface {
	columns(ctx context.Context, table string) ([]Column, error)
	primaryKey(ctx context.Context, table string) ([]string, error)
	indexes(ctx context.Context, table string) ([]Index, error)
	foreignKeys(ctx context.Context, table string) ([]ForeignKey, error)
}

// describe assembles a table description from the catalog queries.
func describe(ctx context.Context, c catalog, table string) (*TableDescription, error) {
	desc := &TableDescription{Name: table}

	// Columns
	cols, err := c.columns(ctx, table)
	if err != nil {
		return nil, fail(table, err)
	}
	if len(cols) == 0 {
		return nil, fail(table, ErrTableNotFound)
	}
	desc.Columns = cols

	// Primary key
	pk, err := c.primaryKey(ctx, table)
	if err != nil {
		return nil, fail(table, err)
	}
	desc.PrimaryKey = pk
	for _, name := range pk {
		if col := desc.Column(name); col != nil {
			col.PrimaryKey = true
		}
	}

	// Indexes
	if desc.Indexes, err = c.indexes(ctx, table); err != nil {
		return nil, fail(table, err)
	}

	// Foreign keys
	if desc.ForeignKeys, err = c.foreignKeys(ctx, table); err != nil {
		return nil, fail(table, err)
	}
	return desc, nil
}

// each runs query and calls scan for every row.
func each(ctx context.Context, q driver.Queryer, query string, args []any, scan func(driver.Rows) error) error {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// stringList runs a query returning one text column.
func stringList(ctx context.Context, q driver.Queryer, query string, args ...any) ([]string, error) {
	var out []string
	err := each(ctx, q, query, args, func(rows driver.Rows) error {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// indexSet groups one row per indexed column into indexes.
type indexSet struct {
	order  []string
	byName map[string]*Index
}

func (s *indexSet) add(name, column string, unique, constraint bool) {
	if s.byName == nil {
		s.byName = make(map[string]*Index)
	}
	idx, ok := s.byName[name]
	if !ok {
		idx = &Index{Name: name, Unique: unique, Constraint: constraint}
		s.byName[name] = idx
		s.order = append(s.order, name)
	}
	idx.Columns = append(idx.Columns, column)
}

func (s *indexSet) list() []Index {
	out := make([]Index, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.byName[name])
	}
	return out
}

// fkSet groups one row per constrained column into foreign keys.
type fkSet struct {
	order  []string
	byName map[string]*ForeignKey
}

func (s *fkSet) add(name, column, refTable, refColumn, onDelete string) {
	if s.byName == nil {
		s.byName = make(map[string]*ForeignKey)
	}
	fk, ok := s.byName[name]
	if !ok {
		fk = &ForeignKey{Name: name, RefTable: refTable, OnDelete: onDelete}
		s.byName[name] = fk
		s.order = append(s.order, name)
	}
	fk.Columns = append(fk.Columns, column)
	fk.RefColumns = append(fk.RefColumns, refColumn)
}

func (s *fkSet) list() []ForeignKey {
	out := make([]ForeignKey, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.byName[name])
	}
	return out
}
