package sqlgen

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

var mssqlTypes = typeNames{
	integer:  "INT",
	bigint:   "BIGINT",
	double:   "FLOAT",
	decimal:  "NUMERIC",
	boolean:  "BIT",
	varchar:  "NVARCHAR",
	text:     "NVARCHAR(MAX)",
	date:     "DATE",
	datetime: "DATETIME",
	time:     "TIME",
	binary:   "VARBINARY(MAX)",
}

var mssqlReserved = []string{
	"BACKUP", "BREAK", "BROWSE", "BULK", "CLOSE", "CLUSTERED", "COMPUTE",
	"DATABASE", "DENY", "DUMP", "EXEC", "EXECUTE", "EXIT", "FILE", "FILLFACTOR",
	"FUNCTION", "GOTO", "HOLDLOCK", "IDENTITY", "INDEX", "KEY", "KILL", "LINENO",
	"LOAD", "NOCHECK", "OFF", "OFFSETS", "OPEN", "OPTION", "OVER", "PERCENT",
	"PIVOT", "PLAN", "PRINT", "PROC", "PROCEDURE", "PUBLIC", "RAISERROR", "READ",
	"RESTORE", "RETURN", "REVERT", "REVOKE", "ROWCOUNT", "RULE", "SAVE",
	"SCHEMA", "SHUTDOWN", "STATISTICS", "TEXTSIZE", "TOP", "TRAN",
	"TRANSACTION", "TRIGGER", "TRUNCATE", "UNPIVOT", "USE", "VARYING", "VIEW",
	"WAITFOR", "WHILE",
}

var mssqlDateParts = map[ast.FuncName]string{
	ast.FnYear: "year", ast.FnMonth: "month", ast.FnDay: "day",
	ast.FnHour: "hour", ast.FnMinute: "minute", ast.FnSecond: "second",
}

func atPlaceholder(n int) string { return fmt.Sprintf("@p%d", n) }

// restrictAsNoAction maps RESTRICT, which the backend lacks, to NO ACTION.
func restrictAsNoAction(p schema.OnDeletePolicy) string {
	switch p {
	case 0:
		return ""
	case schema.Restrict:
		return " ON DELETE NO ACTION"
	}
	return " ON DELETE " + p.String()
}

func newMSSQL(v *version.Version) *base {
	page := offsetFetch
	if !atLeast(v, "11") {
		page = rowNumberWindow
	}
	return newBase(hooks{
		name:        "mssql",
		openQuote:   "[",
		closeQuote:  "]",
		placeholder: atPlaceholder,
		maxIdent:    128,
		reserved:    mssqlReserved,
		columnType:  mssqlTypes.render,
		identity: func(f *schema.Field) string {
			if f.Type().Kind() == types.BigIdentity {
				return "BIGINT IDENTITY PRIMARY KEY"
			}
			return "INT IDENTITY PRIMARY KEY"
		},
		boolean: numericBool,
		keyword: func(k schema.DefaultKeyword) (string, error) {
			switch k {
			case schema.CurrentDate:
				return "CONVERT(date, GETDATE())", nil
			case schema.CurrentTime:
				return "CONVERT(time, GETDATE())", nil
			}
			return k.String(), nil
		},
		binary: func(op ast.BinaryOp, left, right string) (string, bool, error) {
			if op == ast.OpConcat {
				return "(" + left + " + " + right + ")", true, nil
			}
			return "", false, nil
		},
		function: func(fn ast.FuncName, args []string) (string, bool) {
			if part, ok := mssqlDateParts[fn]; ok {
				return "DATEPART(" + part + ", " + args[0] + ")", true
			}
			switch fn {
			case ast.FnLength:
				return "LEN(" + args[0] + ")", true
			case ast.FnSubstring:
				return "SUBSTRING(" + strings.Join(args, ", ") + ")", true
			}
			return "", false
		},
		likeSpecials: "%_[",
		paginate:     page,

		addColumn: "ADD",
		alterType: func(table, column, typ string, f *schema.Field) []string {
			sql := "ALTER TABLE " + table + " ALTER COLUMN " + column + " " + typ
			if !f.Nullable() {
				sql += " NOT NULL"
			}
			return []string{sql}
		},
		renameColumn: func(table, from, to string) string {
			return fmt.Sprintf("EXEC sp_rename '%s.%s', '%s', 'COLUMN'", table, from, to)
		},
		dropIndex: func(table, name string) string {
			return "DROP INDEX " + name + " ON " + table
		},
		onDelete: restrictAsNoAction,
		returning: func(sql, key string, _ int) string {
			output := " OUTPUT INSERTED." + key
			for _, marker := range []string{" DEFAULT VALUES", " VALUES ("} {
				if i := strings.Index(sql, marker); i >= 0 {
					return sql[:i] + output + sql[i:]
				}
			}
			return sql
		},

		retrieval:        ReturnedRow,
		savepoints:       true,
		transactionalDDL: true,
		addConstraint:    true,
		savepoint: func(name string) (string, string, string) {
			return "SAVE TRANSACTION " + name, "", "ROLLBACK TRANSACTION " + name
		},
		advisoryLock: func(name string) (Statement, Statement, bool) {
			return Statement{SQL: "EXEC sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Session'", Args: []any{name}},
				Statement{SQL: "EXEC sp_releaseapplock @Resource = @p1, @LockOwner = 'Session'", Args: []any{name}},
				true
		},
	})
}
