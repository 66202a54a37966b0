package introspect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/satishbabariya/godal/runtime/driver"
)

// MySQL reads the schema of the current database from information_schema.
type MySQL struct {
	q driver.Queryer
}

// NewMySQL returns an introspector for MySQL and MariaDB.
func NewMySQL(q driver.Queryer) *MySQL { return &MySQL{q: q} }

// ListTables returns the base tables of the current database.
func (i *MySQL) ListTables(ctx context.Context) ([]string, error) {
	names, err := stringList(ctx, i.q, `SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, fail("", err)
	}
	return names, nil
}

// DescribeTable describes one table.
func (i *MySQL) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	return describe(ctx, i, name)
}

func (i *MySQL) columns(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	err := each(ctx, i.q, `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, []any{table}, func(rows driver.Rows) error {
		var (
			col             Column
			nullable, extra string
			dflt            sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &dflt, &extra); err != nil {
			return err
		}
		col.Nullable = nullable == "YES"
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if dflt.Valid {
			col.Default = &dflt.String
		}
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

func (i *MySQL) primaryKey(ctx context.Context, table string) ([]string, error) {
	return stringList(ctx, i.q, `SELECT COLUMN_NAME FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = 'PRIMARY'
		ORDER BY SEQ_IN_INDEX`, table)
}

func (i *MySQL) indexes(ctx context.Context, table string) ([]Index, error) {
	// Unique and foreign key constraints create indexes of the same name.
	constraints, err := stringList(ctx, i.q, `SELECT CONSTRAINT_NAME FROM information_schema.TABLE_CONSTRAINTS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`, table)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(constraints))
	for _, name := range constraints {
		owned[name] = true
	}

	var set indexSet
	err = each(ctx, i.q, `SELECT INDEX_NAME, NON_UNIQUE, COLUMN_NAME FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, []any{table}, func(rows driver.Rows) error {
		var (
			name, column string
			nonUnique    int
		)
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return err
		}
		set.add(name, column, nonUnique == 0, name == "PRIMARY" || owned[name])
		return nil
	})
	return set.list(), err
}

func (i *MySQL) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var set fkSet
	err := each(ctx, i.q, `SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME, r.DELETE_RULE
		FROM information_schema.KEY_COLUMN_USAGE k
		JOIN information_schema.REFERENTIAL_CONSTRAINTS r
			ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME
		WHERE k.TABLE_SCHEMA = DATABASE() AND k.TABLE_NAME = ? AND k.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION`, []any{table}, func(rows driver.Rows) error {
		var name, column, refTable, refColumn, rule string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &rule); err != nil {
			return err
		}
		set.add(name, column, refTable, refColumn, rule)
		return nil
	})
	return set.list(), err
}
