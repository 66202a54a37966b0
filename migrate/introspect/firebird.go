package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/godal/runtime/driver"
)

// Firebird reads the schema from the RDB$ system tables. Names there are
// blank padded CHAR columns, so every query trims them.
type Firebird struct {
	q driver.Queryer
}

// NewFirebird returns an introspector for Firebird 3 and later.
func NewFirebird(q driver.Queryer) *Firebird { return &Firebird{q: q} }

// ListTables returns the user tables.
func (i *Firebird) ListTables(ctx context.Context) ([]string, error) {
	names, err := stringList(ctx, i.q, `SELECT TRIM(RDB$RELATION_NAME) FROM RDB$RELATIONS
		WHERE COALESCE(RDB$SYSTEM_FLAG, 0) = 0 AND RDB$VIEW_BLR IS NULL
		ORDER BY 1`)
	if err != nil {
		return nil, fail("", err)
	}
	return names, nil
}

// DescribeTable describes one table.
func (i *Firebird) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	return describe(ctx, i, name)
}

// firebirdType maps an RDB$FIELD_TYPE code to its SQL spelling.
func firebirdType(code, subType, length, precision, scale int) string {
	switch code {
	case 7, 8, 16:
		if subType > 0 || scale < 0 {
			name := "NUMERIC"
			if subType == 2 {
				name = "DECIMAL"
			}
			return fmt.Sprintf("%s(%d,%d)", name, precision, -scale)
		}
		return map[int]string{7: "SMALLINT", 8: "INTEGER", 16: "BIGINT"}[code]
	case 10:
		return "FLOAT"
	case 27:
		return "DOUBLE PRECISION"
	case 12:
		return "DATE"
	case 13:
		return "TIME"
	case 35:
		return "TIMESTAMP"
	case 37:
		return fmt.Sprintf("VARCHAR(%d)", length)
	case 14:
		return fmt.Sprintf("CHAR(%d)", length)
	case 261:
		return fmt.Sprintf("BLOB SUB_TYPE %d", subType)
	case 23:
		return "BOOLEAN"
	}
	return fmt.Sprintf("UNKNOWN(%d)", code)
}

func (i *Firebird) columns(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	err := each(ctx, i.q, `SELECT TRIM(rf.RDB$FIELD_NAME), f.RDB$FIELD_TYPE, COALESCE(f.RDB$FIELD_SUB_TYPE, 0),
			COALESCE(f.RDB$CHARACTER_LENGTH, f.RDB$FIELD_LENGTH), COALESCE(f.RDB$FIELD_PRECISION, 0),
			COALESCE(f.RDB$FIELD_SCALE, 0), COALESCE(rf.RDB$NULL_FLAG, f.RDB$NULL_FLAG, 0),
			CAST(COALESCE(rf.RDB$DEFAULT_SOURCE, f.RDB$DEFAULT_SOURCE) AS VARCHAR(1024)),
			rf.RDB$IDENTITY_TYPE
		FROM RDB$RELATION_FIELDS rf
		JOIN RDB$FIELDS f ON f.RDB$FIELD_NAME = rf.RDB$FIELD_SOURCE
		WHERE rf.RDB$RELATION_NAME = ?
		ORDER BY rf.RDB$FIELD_POSITION`, []any{table}, func(rows driver.Rows) error {
		var (
			col                                   Column
			code, subType, length, precision, scl int
			notNull                               int
			dflt                                  sql.NullString
			identity                              sql.NullInt64
		)
		if err := rows.Scan(&col.Name, &code, &subType, &length, &precision, &scl, &notNull, &dflt, &identity); err != nil {
			return err
		}
		col.Type = firebirdType(code, subType, length, precision, scl)
		col.Nullable = notNull == 0
		col.AutoIncrement = identity.Valid
		if dflt.Valid {
			d := strings.TrimSpace(dflt.String)
			if len(d) >= 8 && strings.EqualFold(d[:8], "DEFAULT ") {
				d = strings.TrimSpace(d[8:])
			}
			col.Default = &d
		}
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

const firebirdConstraintColumns = `SELECT TRIM(s.RDB$FIELD_NAME)
	FROM RDB$RELATION_CONSTRAINTS c
	JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = c.RDB$INDEX_NAME
	WHERE c.RDB$RELATION_NAME = ? AND c.RDB$CONSTRAINT_TYPE = 'PRIMARY KEY'
	ORDER BY s.RDB$FIELD_POSITION`

func (i *Firebird) primaryKey(ctx context.Context, table string) ([]string, error) {
	return stringList(ctx, i.q, firebirdConstraintColumns, table)
}

func (i *Firebird) indexes(ctx context.Context, table string) ([]Index, error) {
	var set indexSet
	err := each(ctx, i.q, `SELECT TRIM(x.RDB$INDEX_NAME), COALESCE(x.RDB$UNIQUE_FLAG, 0),
			TRIM(s.RDB$FIELD_NAME), CASE WHEN c.RDB$CONSTRAINT_NAME IS NULL THEN 0 ELSE 1 END
		FROM RDB$INDICES x
		JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = x.RDB$INDEX_NAME
		LEFT JOIN RDB$RELATION_CONSTRAINTS c ON c.RDB$INDEX_NAME = x.RDB$INDEX_NAME
		WHERE x.RDB$RELATION_NAME = ? AND COALESCE(x.RDB$SYSTEM_FLAG, 0) = 0
		ORDER BY 1, s.RDB$FIELD_POSITION`, []any{table}, func(rows driver.Rows) error {
		var (
			name, column       string
			unique, constraint int
		)
		if err := rows.Scan(&name, &unique, &column, &constraint); err != nil {
			return err
		}
		set.add(name, column, unique == 1, constraint == 1)
		return nil
	})
	return set.list(), err
}

func (i *Firebird) foreignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var set fkSet
	err := each(ctx, i.q, `SELECT TRIM(c.RDB$CONSTRAINT_NAME), TRIM(s.RDB$FIELD_NAME), TRIM(pc.RDB$RELATION_NAME),
			TRIM(ps.RDB$FIELD_NAME), TRIM(r.RDB$DELETE_RULE)
		FROM RDB$RELATION_CONSTRAINTS c
		JOIN RDB$REF_CONSTRAINTS r ON r.RDB$CONSTRAINT_NAME = c.RDB$CONSTRAINT_NAME
		JOIN RDB$RELATION_CONSTRAINTS pc ON pc.RDB$CONSTRAINT_NAME = r.RDB$CONST_NAME_UQ
		JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = c.RDB$INDEX_NAME
		JOIN RDB$INDEX_SEGMENTS ps ON ps.RDB$INDEX_NAME = pc.RDB$INDEX_NAME
			AND ps.RDB$FIELD_POSITION = s.RDB$FIELD_POSITION
		WHERE c.RDB$RELATION_NAME = ? AND c.RDB$CONSTRAINT_TYPE = 'FOREIGN KEY'
		ORDER BY 1, s.RDB$FIELD_POSITION`, []any{table}, func(rows driver.Rows) error {
		var name, column, refTable, refColumn, rule string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &rule); err != nil {
			return err
		}
		set.add(name, column, refTable, refColumn, rule)
		return nil
	})
	return set.list(), err
}
