package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/godal/runtime/driver"
)

// Oracle reads the schema owned by the connected user from the ALL_ views.
// Oracle folds unquoted names to upper case; names here are used as created.
type Oracle struct {
	q driver.Queryer
}

// NewOracle returns an introspector for Oracle.
func NewOracle(q driver.Queryer) *Oracle { return &Oracle{q: q} }

// ListTables returns the tables owned by the current user.
func (i *Oracle) ListTables(ctx context.Context) ([]string, error) {
	names, err := stringList(ctx, i.q, `SELECT table_name FROM all_tables
		WHERE owner = USER AND nested = 'NO' AND dropped = 'NO'
		ORDER BY table_name`)
	if err != nil {
		return nil, fail("", err)
	}
	return names, nil
}

// DescribeTable describes one table.
func (i *Oracle) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	return describe(ctx, i, name)
}

// oracleType rebuilds the declared spelling of a column type.
func oracleType(name string, charLength int, precision, scale sql.NullInt64) string {
	switch name {
	case "VARCHAR2", "NVARCHAR2", "CHAR", "NCHAR":
		return fmt.Sprintf("%s(%d)", name, charLength)
	case "NUMBER":
		switch {
		case !precision.Valid:
			return name
		case !scale.Valid || scale.Int64 == 0:
			return fmt.Sprintf("NUMBER(%d)", precision.Int64)
		default:
			return fmt.Sprintf("NUMBER(%d,%d)", precision.Int64, scale.Int64)
		}
	}
	return name
}

func (i *Oracle) columns(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	err := each(ctx, i.q, `SELECT column_name, data_type, char_length, data_precision, data_scale,
			nullable, data_default, identity_column
		FROM all_tab_cols
		WHERE owner = USER AND table_name = :1 AND hidden_column = 'NO'
		ORDER BY column_id`, []any{table}, func(rows driver.Rows) error {
		var (
			col                  Column
			typ, nullable, ident string
			charLength           int
			precision, scale     sql.NullInt64
			dflt                 sql.NullString
		)
		if err := rows.Scan(&col.Name, &typ, &charLength, &precision, &scale, &nullable, &dflt, &ident); err != nil {
			return err
		}
		col.Type = oracleType(typ, charLength, precision, scale)
		col.Nullable = nullable == "Y"
		col.AutoIncrement = ident == "YES"
		if dflt.Valid {
			d := strings.TrimSpace(dflt.String)
			col.Default = &d
			if strings.Contains(strings.ToUpper(d), ".NEXTVAL") {
				col.AutoIncrement = true
			}
		}
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

func (i *Oracle) primaryKey(ctx context.Context, table string) ([]string, error) {
	return stringList(ctx, i.q, `SELECT cc.column_name
		FROM all_constraints c
		JOIN all_cons_columns cc ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
		WHERE c.owner = USER AND c.table_name = :1 AND c.constraint_type = 'P'
		ORDER BY cc.position`, table)
}

func (i *Oracle) indexes(ctx context.Context, table string) ([]Index, error) {
	constraints, err := stringList(ctx, i.q, `SELECT NVL(index_name, constraint_name) FROM all_constraints
		WHERE owner = USER AND table_name = :1 AND constraint_type IN ('P', 'U')`, table)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(constraints))
	for _, name := range constraints {
		owned[name] = true
	}

	var set indexSet
	err = each(ctx, i.q, `SELECT i.index_name, i.uniqueness, c.column_name
		FROM all_indexes i
		JOIN all_ind_columns c ON c.index_owner = i.owner AND c.index_name = i.index_name
		WHERE i.table_owner = USER AND i.table_name = :1
		ORDER BY i.index_name, c.column_position`, []any{table}, func(rows driver.Rows) error {
		var name, uniqueness, column string
		if err := rows.Scan(&name, &uniqueness, &column); err != nil {
			return err
		}
		set.add(name, column, uniqueness == "UNIQUE", owned[name])
		return nil
	})
	return set.list(), err
}

func (i *Oracle) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var set fkSet
	err := each(ctx, i.q, `SELECT c.constraint_name, cc.column_name, r.table_name, rc.column_name, c.delete_rule
		FROM all_constraints c
		JOIN all_cons_columns cc ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
		JOIN all_constraints r ON r.owner = c.r_owner AND r.constraint_name = c.r_constraint_name
		JOIN all_cons_columns rc ON rc.owner = r.owner AND rc.constraint_name = r.constraint_name
			AND rc.position = cc.position
		WHERE c.owner = USER AND c.table_name = :1 AND c.constraint_type = 'R'
		ORDER BY c.constraint_name, cc.position`, []any{table}, func(rows driver.Rows) error {
		var name, column, refTable, refColumn, rule string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &rule); err != nil {
			return err
		}
		set.add(name, column, refTable, refColumn, rule)
		return nil
	})
	return set.list(), err
}
