package sqlgen

import (
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

var mysqlTypes = typeNames{
	integer:  "INT",
	bigint:   "BIGINT",
	double:   "DOUBLE",
	decimal:  "DECIMAL",
	boolean:  "BOOL",
	varchar:  "VARCHAR",
	text:     "LONGTEXT",
	date:     "DATE",
	datetime: "DATETIME",
	time:     "TIME",
	binary:   "LONGBLOB",
	json:     "JSON",
}

var mysqlReserved = []string{
	"CHANGE", "CONDITION", "DATABASE", "DIV", "GROUPS", "INDEX", "INTERVAL",
	"KEY", "KEYS", "LOAD", "LOCK", "MOD", "OPTION", "RANGE", "RANK", "READ",
	"REGEXP", "RLIKE", "ROW", "ROWS", "SCHEMA", "SEPARATOR", "SHOW", "USE",
	"WRITE", "XOR",
}

// mysqlCast maps types onto the restricted target list of CAST.
func mysqlCast(t types.Type) (string, error) {
	switch t.Kind() {
	case types.Integer, types.BigInt, types.Identity, types.BigIdentity,
		types.Reference, types.BigReference, types.Boolean:
		return "SIGNED", nil
	case types.String:
		length := t.Length()
		if length == 0 {
			length = types.DefaultStringLength
		}
		return fmt.Sprintf("CHAR(%d)", length), nil
	case types.Text, types.List:
		return "CHAR", nil
	case types.Binary:
		return "BINARY", nil
	}
	return mysqlTypes.render(t)
}

func newMySQL(_ *version.Version) *base {
	return newBase(hooks{
		name:       "mysql",
		openQuote:  "`",
		closeQuote: "`",
		maxIdent:   64,
		reserved:   mysqlReserved,
		columnType: mysqlTypes.render,
		castType:   mysqlCast,
		identity: func(f *schema.Field) string {
			if f.Type().Kind() == types.BigIdentity {
				return "BIGINT AUTO_INCREMENT PRIMARY KEY"
			}
			return "INT AUTO_INCREMENT PRIMARY KEY"
		},
		typeAlias: map[string]string{"BOOLEAN": "TINYINT(1)"},
		binary: func(op ast.BinaryOp, left, right string) (string, bool, error) {
			switch op {
			case ast.OpRegexp:
				return "(" + left + " REGEXP " + right + ")", true, nil
			case ast.OpConcat:
				return "CONCAT(" + left + ", " + right + ")", true, nil
			}
			return "", false, nil
		},
		paginate: limitOffset,
		noLimit:  "18446744073709551615",

		alterType: func(table, column, typ string, f *schema.Field) []string {
			sql := "ALTER TABLE " + table + " MODIFY COLUMN " + column + " " + typ
			if !f.Nullable() {
				sql += " NOT NULL"
			}
			return []string{sql}
		},
		dropIndex: func(table, name string) string {
			return "DROP INDEX " + name + " ON " + table
		},
		dropConstraint: "DROP FOREIGN KEY",
		tableSuffix:    " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		insertDefaults: func(table, _ string) string {
			return "INSERT INTO " + table + " () VALUES ()"
		},

		retrieval:     LastInsertID,
		savepoints:    true,
		addConstraint: true,
		advisoryLock: func(name string) (Statement, Statement, bool) {
			return Statement{SQL: "SELECT GET_LOCK(?, -1)", Args: []any{name}},
				Statement{SQL: "SELECT RELEASE_LOCK(?)", Args: []any{name}},
				true
		},
	})
}
