package sqlgen

import (
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

var firebirdTypes = typeNames{
	integer:  "INTEGER",
	bigint:   "BIGINT",
	double:   "DOUBLE PRECISION",
	decimal:  "DECIMAL",
	boolean:  "BOOLEAN",
	varchar:  "VARCHAR",
	text:     "BLOB SUB_TYPE 1",
	date:     "DATE",
	datetime: "TIMESTAMP",
	time:     "TIME",
	binary:   "BLOB SUB_TYPE 0",
}

var firebirdReserved = []string{
	"BIGINT", "BLOB", "BOOLEAN", "CHAR", "CHAR_LENGTH", "CURRENT_CONNECTION",
	"DATE", "DAY", "DECIMAL", "DELETING", "DOUBLE", "FLOAT", "GDSCODE", "HOUR",
	"INSERTING", "INTEGER", "MINUTE", "MONTH", "NUMERIC", "PLAN", "POSITION",
	"POST_EVENT", "RECREATE", "RECURSIVE", "RELEASE", "RETURNING_VALUES",
	"ROWS", "ROW_COUNT", "SAVEPOINT", "SECOND", "SENSITIVE", "SMALLINT",
	"SQLCODE", "START", "TIME", "TIMESTAMP", "TRIGGER", "UPDATING", "VALUE",
	"VARCHAR", "VARIABLE", "VARYING", "YEAR",
}

func newFirebird(_ *version.Version) *base {
	return newBase(hooks{
		name:       "firebird",
		maxIdent:   31,
		reserved:   firebirdReserved,
		columnType: firebirdTypes.render,
		identity: func(f *schema.Field) string {
			if f.Type().Kind() == types.BigIdentity {
				return "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
			}
			return "INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
		},
		binary: func(op ast.BinaryOp, left, right string) (string, bool, error) {
			if op == ast.OpMod {
				return "MOD(" + left + ", " + right + ")", true, nil
			}
			return "", false, nil
		},
		function: func(fn ast.FuncName, args []string) (string, bool) {
			switch fn {
			case ast.FnLength:
				return "CHAR_LENGTH(" + args[0] + ")", true
			case ast.FnSubstring:
				return "SUBSTRING(" + args[0] + " FROM " + args[1] + " FOR " + args[2] + ")", true
			}
			return "", false
		},
		paginate: firstSkip,

		addColumn:  "ADD",
		dropColumn: "DROP",
		alterType: func(table, column, typ string, _ *schema.Field) []string {
			return []string{"ALTER TABLE " + table + " ALTER COLUMN " + column + " TYPE " + typ}
		},
		renameColumn: func(table, from, to string) string {
			return "ALTER TABLE " + quoteDouble(table) + " ALTER COLUMN " + quoteDouble(from) + " TO " + quoteDouble(to)
		},
		onDelete: restrictAsNoAction,
		returning: func(sql, key string, _ int) string {
			return sql + " RETURNING " + key
		},

		retrieval:        ReturnedRow,
		savepoints:       true,
		transactionalDDL: true,
		addConstraint:    true,
	})
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
