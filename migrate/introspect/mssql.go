package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/godal/runtime/driver"
)

// MSSQL reads the schema from the sys catalog views.
type MSSQL struct {
	q driver.Queryer
}

// NewMSSQL returns an introspector for SQL Server.
func NewMSSQL(q driver.Queryer) *MSSQL { return &MSSQL{q: q} }

// ListTables returns the user tables.
func (i *MSSQL) ListTables(ctx context.Context) ([]string, error) {
	names, err := stringList(ctx, i.q, `SELECT name FROM sys.tables WHERE is_ms_shipped = 0 ORDER BY name`)
	if err != nil {
		return nil, fail("", err)
	}
	return names, nil
}

// DescribeTable describes one table.
func (i *MSSQL) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	return describe(ctx, i, name)
}

// mssqlType rebuilds the declared spelling of a column type.
func mssqlType(name string, maxLength, precision, scale int) string {
	name = strings.ToLower(name)
	switch name {
	case "nvarchar", "nchar":
		if maxLength < 0 {
			return name + "(max)"
		}
		return fmt.Sprintf("%s(%d)", name, maxLength/2)
	case "varchar", "char", "varbinary", "binary":
		if maxLength < 0 {
			return name + "(max)"
		}
		return fmt.Sprintf("%s(%d)", name, maxLength)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", name, precision, scale)
	}
	return name
}

func (i *MSSQL) columns(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	err := each(ctx, i.q, `SELECT c.name, t.name, c.max_length, c.precision, c.scale, c.is_nullable, c.is_identity,
			OBJECT_DEFINITION(c.default_object_id)
		FROM sys.columns c
		JOIN sys.types t ON t.user_type_id = c.user_type_id
		WHERE c.object_id = OBJECT_ID(@p1)
		ORDER BY c.column_id`, []any{table}, func(rows driver.Rows) error {
		var (
			col                         Column
			typ                         string
			maxLength, precision, scale int
			dflt                        sql.NullString
		)
		if err := rows.Scan(&col.Name, &typ, &maxLength, &precision, &scale, &col.Nullable, &col.AutoIncrement, &dflt); err != nil {
			return err
		}
		col.Type = mssqlType(typ, maxLength, precision, scale)
		if dflt.Valid {
			col.Default = &dflt.String
		}
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

const mssqlIndexes = `SELECT i.name, i.is_unique, i.is_primary_key, i.is_unique_constraint, c.name
	FROM sys.indexes i
	JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE i.object_id = OBJECT_ID(@p1) AND i.name IS NOT NULL
	ORDER BY i.name, ic.key_ordinal`

type mssqlIndexRow struct {
	name, column                      string
	unique, primary, uniqueConstraint bool
}

func (i *MSSQL) indexRows(ctx context.Context, table string) ([]mssqlIndexRow, error) {
	var out []mssqlIndexRow
	err := each(ctx, i.q, mssqlIndexes, []any{table}, func(rows driver.Rows) error {
		var r mssqlIndexRow
		if err := rows.Scan(&r.name, &r.unique, &r.primary, &r.uniqueConstraint, &r.column); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (i *MSSQL) primaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := i.indexRows(ctx, table)
	if err != nil {
		return nil, err
	}
	var pk []string
	for _, r := range rows {
		if r.primary {
			pk = append(pk, r.column)
		}
	}
	return pk, nil
}

func (i *MSSQL) indexes(ctx context.Context, table string) ([]Index, error) {
	rows, err := i.indexRows(ctx, table)
	if err != nil {
		return nil, err
	}
	var set indexSet
	for _, r := range rows {
		set.add(r.name, r.column, r.unique, r.primary || r.uniqueConstraint)
	}
	return set.list(), nil
}

func (i *MSSQL) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var set fkSet
	err := each(ctx, i.q, `SELECT fk.name, pc.name, rt.name, rc.name, fk.delete_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = OBJECT_ID(@p1)
		ORDER BY fk.name, fkc.constraint_column_id`, []any{table}, func(rows driver.Rows) error {
		var name, column, refTable, refColumn, action string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &action); err != nil {
			return err
		}
		set.add(name, column, refTable, refColumn, strings.ReplaceAll(action, "_", " "))
		return nil
	})
	return set.list(), err
}
