package introspect

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"github.com/satishbabariya/godal/runtime/driver"
)

// SQLite reads the schema through PRAGMA statements.
type SQLite struct {
	q driver.Queryer
}

// NewSQLite returns an introspector for SQLite.
func NewSQLite(q driver.Queryer) *SQLite { return &SQLite{q: q} }

// ListTables returns the user tables.
func (i *SQLite) ListTables(ctx context.Context) ([]string, error) {
	names, err := stringList(ctx, i.q, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fail("", err)
	}
	return names, nil
}

// DescribeTable describes one table.
func (i *SQLite) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	return describe(ctx, i, name)
}

// pragmaArg quotes a name for use inside a PRAGMA call, which takes no
// bound parameters.
func pragmaArg(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type sqliteColumn struct {
	Column
	pk int
}

func (i *SQLite) tableInfo(ctx context.Context, table string) ([]sqliteColumn, error) {
	var cols []sqliteColumn
	err := each(ctx, i.q, "PRAGMA table_info("+pragmaArg(table)+")", nil, func(rows driver.Rows) error {
		var (
			cid     int
			col     sqliteColumn
			notNull int
			dflt    sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &col.pk); err != nil {
			return err
		}
		col.Nullable = notNull == 0 && col.pk == 0
		if dflt.Valid {
			col.Default = &dflt.String
		}
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

func (i *SQLite) columns(ctx context.Context, table string) ([]Column, error) {
	info, err := i.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	keyCols := 0
	for _, c := range info {
		if c.pk > 0 {
			keyCols++
		}
	}
	out := make([]Column, len(info))
	for n, c := range info {
		// Only a lone INTEGER PRIMARY KEY is an alias of the rowid.
		c.AutoIncrement = c.pk > 0 && keyCols == 1 && strings.EqualFold(c.Type, "INTEGER")
		out[n] = c.Column
	}
	return out, nil
}

func (i *SQLite) primaryKey(ctx context.Context, table string) ([]string, error) {
	info, err := i.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	var keyed []sqliteColumn
	for _, c := range info {
		if c.pk > 0 {
			keyed = append(keyed, c)
		}
	}
	sort.Slice(keyed, func(a, b int) bool { return keyed[a].pk < keyed[b].pk })
	out := make([]string, len(keyed))
	for n, c := range keyed {
		out[n] = c.Name
	}
	return out, nil
}

func (i *SQLite) indexes(ctx context.Context, table string) ([]Index, error) {
	type entry struct {
		name   string
		unique bool
		origin string
	}
	var list []entry
	err := each(ctx, i.q, "PRAGMA index_list("+pragmaArg(table)+")", nil, func(rows driver.Rows) error {
		var (
			seq     int
			e       entry
			unique  int
			partial int
		)
		if err := rows.Scan(&seq, &e.name, &unique, &e.origin, &partial); err != nil {
			return err
		}
		e.unique = unique == 1
		list = append(list, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(a, b int) bool { return list[a].name < list[b].name })

	var set indexSet
	for _, e := range list {
		// origin is "c" for CREATE INDEX, "u" for UNIQUE and "pk" for keys.
		constraint := e.origin != "c"
		err := each(ctx, i.q, "PRAGMA index_info("+pragmaArg(e.name)+")", nil, func(rows driver.Rows) error {
			var (
				seqno, cid int
				column     sql.NullString
			)
			if err := rows.Scan(&seqno, &cid, &column); err != nil {
				return err
			}
			set.add(e.name, column.String, e.unique, constraint)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return set.list(), nil
}

func (i *SQLite) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var set fkSet
	err := each(ctx, i.q, "PRAGMA foreign_key_list("+pragmaArg(table)+")", nil, func(rows driver.Rows) error {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		// SQLite keeps no constraint names; the id groups the columns.
		set.add(strconv.Itoa(id), from, refTable, to.String, onDelete)
		return nil
	})
	if err != nil {
		return nil, err
	}
	fks := set.list()
	for n := range fks {
		fks[n].Name = ""
	}
	return fks, nil
}
