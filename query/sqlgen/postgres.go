package sqlgen

import (
	"strconv"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

var postgresTypes = typeNames{
	integer:  "INTEGER",
	bigint:   "BIGINT",
	double:   "DOUBLE PRECISION",
	decimal:  "NUMERIC",
	boolean:  "BOOLEAN",
	varchar:  "VARCHAR",
	text:     "TEXT",
	date:     "DATE",
	datetime: "TIMESTAMP",
	time:     "TIME",
	binary:   "BYTEA",
	json:     "JSONB",
}

var postgresReserved = []string{
	"ANALYSE", "ANALYZE", "ARRAY", "ASYMMETRIC", "BOTH", "COLLATE", "CONCURRENTLY",
	"DEFERRABLE", "DO", "FREEZE", "ILIKE", "INITIALLY", "ISNULL", "LATERAL",
	"LEADING", "LOCALTIME", "LOCALTIMESTAMP", "NOTNULL", "ONLY", "OVERLAPS",
	"PLACING", "RETURNING", "SIMILAR", "SOME", "SYMMETRIC", "TABLESAMPLE",
	"TRAILING", "VARIADIC", "VERBOSE", "WINDOW",
}

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// postgresHooks is shared by PostgreSQL and the wire compatible backends.
func postgresHooks() hooks {
	return hooks{
		name:        "postgres",
		placeholder: dollarPlaceholder,
		maxIdent:    63,
		reserved:    postgresReserved,
		columnType:  postgresTypes.render,
		identity: func(f *schema.Field) string {
			if f.Type().Kind() == types.BigIdentity {
				return "BIGSERIAL PRIMARY KEY"
			}
			return "SERIAL PRIMARY KEY"
		},
		binary: func(op ast.BinaryOp, left, right string) (string, bool, error) {
			switch op {
			case ast.OpILike:
				return "(" + left + " ILIKE " + right + ")", true, nil
			case ast.OpRegexp:
				return "(" + left + " ~ " + right + ")", true, nil
			}
			return "", false, nil
		},
		paginate: limitOffset,

		alterType: func(table, column, typ string, _ *schema.Field) []string {
			return []string{"ALTER TABLE " + table + " ALTER COLUMN " + column + " TYPE " + typ + " USING " + column + "::" + typ}
		},
		returning: func(sql, key string, _ int) string {
			return sql + " RETURNING " + key
		},

		retrieval:        ReturnedRow,
		savepoints:       true,
		transactionalDDL: true,
		addConstraint:    true,
		advisoryLock: func(name string) (Statement, Statement, bool) {
			return Statement{SQL: "SELECT pg_advisory_lock(hashtext($1))", Args: []any{name}},
				Statement{SQL: "SELECT pg_advisory_unlock(hashtext($1))", Args: []any{name}},
				true
		},
	}
}

func newPostgres(_ *version.Version) *base {
	return newBase(postgresHooks())
}

// newCockroach adapts the PostgreSQL hooks. Every integer column is stored
// as INT8 and column types cannot be altered in place.
func newCockroach(_ *version.Version) *base {
	h := postgresHooks()
	h.name = "cockroachdb"
	h.identity = func(*schema.Field) string {
		return "INT8 DEFAULT unique_rowid() PRIMARY KEY"
	}
	h.typeAlias = map[string]string{"INTEGER": "BIGINT", "INT": "BIGINT"}
	h.alterType = nil
	h.advisoryLock = nil
	return newBase(h)
}
