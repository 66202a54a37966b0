package sqlgen

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

var oracleTypes = typeNames{
	integer:  "NUMBER(10)",
	bigint:   "NUMBER(19)",
	double:   "BINARY_DOUBLE",
	decimal:  "NUMBER",
	boolean:  "NUMBER(1)",
	varchar:  "VARCHAR2",
	text:     "CLOB",
	date:     "DATE",
	datetime: "TIMESTAMP",
	time:     "CHAR(8)",
	binary:   "BLOB",
}

var oracleReserved = []string{
	"ACCESS", "AUDIT", "CHAR", "CLUSTER", "COMMENT", "COMPRESS", "CONNECT",
	"DATE", "DECIMAL", "EXCLUSIVE", "FILE", "FLOAT", "IDENTIFIED", "IMMEDIATE",
	"INCREMENT", "INDEX", "INITIAL", "INTEGER", "LEVEL", "LOCK", "LONG",
	"MAXEXTENTS", "MINUS", "MLSLABEL", "MODE", "MODIFY", "NOAUDIT",
	"NOCOMPRESS", "NOWAIT", "NUMBER", "OFFLINE", "ONLINE", "OPTION", "PCTFREE",
	"PRIOR", "PRIVILEGES", "PUBLIC", "RAW", "RENAME", "RESOURCE", "REVOKE",
	"ROW", "ROWID", "ROWNUM", "ROWS", "SESSION", "SHARE", "SIZE", "SMALLINT",
	"START", "SUCCESSFUL", "SYNONYM", "SYSDATE", "TRIGGER", "UID", "VALIDATE",
	"VARCHAR", "VARCHAR2", "VIEW", "WHENEVER",
}

func colonPlaceholder(n int) string { return ":" + strconv.Itoa(n) }

// oracleOnDelete drops the policies Oracle has no syntax for; they behave
// like the default NO ACTION.
func oracleOnDelete(p schema.OnDeletePolicy) string {
	switch p {
	case schema.Cascade, schema.SetNull:
		return " ON DELETE " + p.String()
	}
	return ""
}

// oracleSequence emulates identity columns before 12c with a sequence and
// an insert trigger.
func oracleSequence(b *base, t *schema.Table) ([]string, error) {
	id := t.Identity()
	if id == nil {
		return nil, nil
	}
	table, err := b.QuoteIdentifier(t.Name())
	if err != nil {
		return nil, err
	}
	seq, err := b.quoteDerived(t.Name() + "_sequence")
	if err != nil {
		return nil, err
	}
	trigger, err := b.quoteDerived(t.Name() + "_crtg")
	if err != nil {
		return nil, err
	}
	col := b.quote(id.Name())
	return []string{
		"CREATE SEQUENCE " + seq + " START WITH 1 INCREMENT BY 1",
		fmt.Sprintf("CREATE OR REPLACE TRIGGER %s BEFORE INSERT ON %s FOR EACH ROW WHEN (new.%s IS NULL) BEGIN SELECT %s.NEXTVAL INTO :new.%s FROM DUAL; END;",
			trigger, table, col, seq, col),
	}, nil
}

func newOracle(v *version.Version) *base {
	modern := atLeast(v, "12")
	h := hooks{
		name:        "oracle",
		placeholder: colonPlaceholder,
		maxIdent:    30,
		reserved:    oracleReserved,
		columnType:  oracleTypes.render,
		identity: func(f *schema.Field) string {
			typ := "NUMBER(10)"
			if f.Type().Kind() == types.BigIdentity {
				typ = "NUMBER(19)"
			}
			if modern {
				return typ + " GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
			}
			return typ + " PRIMARY KEY"
		},
		boolean: numericBool,
		keyword: func(k schema.DefaultKeyword) (string, error) {
			if k == schema.CurrentTime {
				return "", &dalerr.SyntaxTranslationError{Dialect: "oracle", Construct: "CURRENT_TIME", Reason: "no time of day type"}
			}
			return k.String(), nil
		},
		binary: func(op ast.BinaryOp, left, right string) (string, bool, error) {
			switch op {
			case ast.OpRegexp:
				return "REGEXP_LIKE(" + left + ", " + right + ")", true, nil
			case ast.OpMod:
				return "MOD(" + left + ", " + right + ")", true, nil
			}
			return "", false, nil
		},
		bindValue: func(v any) any {
			if b, ok := v.(bool); ok {
				if b {
					return 1
				}
				return 0
			}
			return v
		},
		paginate:   offsetFetch,
		tableAlias: " ",

		addColumn: "ADD",
		parenAdd:  true,
		alterType: func(table, column, typ string, _ *schema.Field) []string {
			return []string{"ALTER TABLE " + table + " MODIFY (" + column + " " + typ + ")"}
		},
		onDelete: oracleOnDelete,
		insertDefaults: func(table, key string) string {
			return "INSERT INTO " + table + " (" + key + ") VALUES (DEFAULT)"
		},
		returning: func(sql, key string, n int) string {
			return sql + " RETURNING " + key + " INTO " + colonPlaceholder(n)
		},

		retrieval:     OutParam,
		savepoints:    true,
		addConstraint: true,
		savepoint: func(name string) (string, string, string) {
			return "SAVEPOINT " + name, "", "ROLLBACK TO SAVEPOINT " + name
		},
	}
	if !modern {
		h.paginate = rowNumNesting
		h.afterCreate = oracleSequence
	}
	return newBase(h)
}
