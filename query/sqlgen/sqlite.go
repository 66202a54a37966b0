package sqlgen

import (
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
)

var sqliteTypes = typeNames{
	integer:  "INTEGER",
	bigint:   "BIGINT",
	double:   "DOUBLE",
	decimal:  "NUMERIC",
	boolean:  "BOOLEAN",
	varchar:  "VARCHAR",
	text:     "TEXT",
	date:     "DATE",
	datetime: "TIMESTAMP",
	time:     "TIME",
	binary:   "BLOB",
}

var sqliteReserved = []string{
	"ABORT", "AUTOINCREMENT", "GLOB", "INDEX", "ISNULL", "NOTNULL", "PRAGMA",
	"REGEXP", "TRANSACTION", "VACUUM",
}

// strftime formats of the date part functions.
var sqliteDateParts = map[ast.FuncName]string{
	ast.FnYear: "%Y", ast.FnMonth: "%m", ast.FnDay: "%d",
	ast.FnHour: "%H", ast.FnMinute: "%M", ast.FnSecond: "%S",
}

func newSQLite(_ *version.Version) *base {
	return newBase(hooks{
		name:       "sqlite",
		maxIdent:   128,
		reserved:   sqliteReserved,
		columnType: sqliteTypes.render,
		identity: func(*schema.Field) string {
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		},
		boolean: numericBool,
		binary: func(op ast.BinaryOp, left, right string) (string, bool, error) {
			if op == ast.OpRegexp {
				return "(" + left + " REGEXP " + right + ")", true, nil
			}
			return "", false, nil
		},
		function: func(fn ast.FuncName, args []string) (string, bool) {
			if format, ok := sqliteDateParts[fn]; ok {
				return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", format, args[0]), true
			}
			return "", false
		},
		paginate: limitOffset,
		noLimit:  "-1",

		retrieval:        LastInsertID,
		savepoints:       true,
		transactionalDDL: true,
		forwardRefs:      true,
		redefinition: &TableRedefinition{
			Disable: "PRAGMA foreign_keys = OFF",
			Check:   "PRAGMA foreign_key_check",
			Enable:  "PRAGMA foreign_keys = ON",
		},
	})
}
