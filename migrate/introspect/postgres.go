package introspect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/satishbabariya/godal/runtime/driver"
)

// Postgres reads the schema from pg_catalog in the current schema.
type Postgres struct {
	q driver.Queryer
	// autoDefault marks defaults that generate keys.
	autoDefault []string
}

// NewPostgres returns an introspector for PostgreSQL.
func NewPostgres(q driver.Queryer) *Postgres {
	return &Postgres{q: q, autoDefault: []string{"nextval("}}
}

// ListTables returns the base tables of the current schema.
func (i *Postgres) ListTables(ctx context.Context) ([]string, error) {
	names, err := stringList(ctx, i.q, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fail("", err)
	}
	return names, nil
}

// DescribeTable describes one table.
func (i *Postgres) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	return describe(ctx, i, name)
}

const pgColumns = `SELECT a.attname, format_type(a.atttypid, a.atttypmod), NOT a.attnotnull,
		pg_get_expr(d.adbin, d.adrelid), a.attidentity <> ''
	FROM pg_attribute a
	JOIN pg_class c ON c.oid = a.attrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
	WHERE c.relname = $1 AND n.nspname = current_schema() AND a.attnum > 0 AND NOT a.attisdropped
	ORDER BY a.attnum`

func (i *Postgres) columns(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	err := each(ctx, i.q, pgColumns, []any{table}, func(rows driver.Rows) error {
		var (
			col      Column
			dflt     sql.NullString
			identity bool
		)
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &dflt, &identity); err != nil {
			return err
		}
		if dflt.Valid {
			col.Default = &dflt.String
			for _, marker := range i.autoDefault {
				if strings.Contains(dflt.String, marker) {
					col.AutoIncrement = true
				}
			}
		}
		col.AutoIncrement = col.AutoIncrement || identity
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

const pgPrimaryKey = `SELECT a.attname
	FROM pg_index i
	JOIN pg_class c ON c.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
	WHERE c.relname = $1 AND n.nspname = current_schema() AND i.indisprimary
	ORDER BY array_position(i.indkey::int2[], a.attnum)`

func (i *Postgres) primaryKey(ctx context.Context, table string) ([]string, error) {
	return stringList(ctx, i.q, pgPrimaryKey, table)
}

const pgIndexes = `SELECT ic.relname, i.indisunique, i.indisprimary OR con.oid IS NOT NULL, a.attname
	FROM pg_index i
	JOIN pg_class c ON c.oid = i.indrelid
	JOIN pg_class ic ON ic.oid = i.indexrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
	LEFT JOIN pg_constraint con ON con.conindid = i.indexrelid AND con.contype IN ('p', 'u')
	WHERE c.relname = $1 AND n.nspname = current_schema()
	ORDER BY ic.relname, array_position(i.indkey::int2[], a.attnum)`

func (i *Postgres) indexes(ctx context.Context, table string) ([]Index, error) {
	var set indexSet
	err := each(ctx, i.q, pgIndexes, []any{table}, func(rows driver.Rows) error {
		var (
			name, column       string
			unique, constraint bool
		)
		if err := rows.Scan(&name, &unique, &constraint, &column); err != nil {
			return err
		}
		set.add(name, column, unique, constraint)
		return nil
	})
	return set.list(), err
}

const pgForeignKeys = `SELECT con.conname, a.attname, rc.relname, ra.attname, con.confdeltype
	FROM pg_constraint con
	JOIN pg_class c ON c.oid = con.conrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_class rc ON rc.oid = con.confrelid
	JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(col, refcol, ord) ON true
	JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.col
	JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refcol
	WHERE con.contype = 'f' AND c.relname = $1 AND n.nspname = current_schema()
	ORDER BY con.conname, k.ord`

// pgActions decodes pg_constraint.confdeltype.
var pgActions = map[string]string{
	"a": "NO ACTION", "r": "RESTRICT", "c": "CASCADE", "n": "SET NULL", "d": "SET DEFAULT",
}

func (i *Postgres) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var set fkSet
	err := each(ctx, i.q, pgForeignKeys, []any{table}, func(rows driver.Rows) error {
		var name, column, refTable, refColumn, action string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &action); err != nil {
			return err
		}
		set.add(name, column, refTable, refColumn, pgActions[action])
		return nil
	})
	return set.list(), err
}
