// Package sqlgen renders query trees and schema definitions into SQL for
// different database backends.
//
// Every dialect shares one base renderer. Backends differ through a set of
// hooks chosen when the dialect is constructed; a Dialect value never changes
// afterwards and is safe for concurrent use.
package sqlgen

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
)

// Statement is a SQL statement with its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// IDRetrieval is how an insert reports the generated key.
type IDRetrieval int

const (
	// LastInsertID uses the driver's LastInsertId.
	LastInsertID IDRetrieval = iota + 1
	// ReturnedRow reads the key from the row the insert returns.
	ReturnedRow
	// OutParam binds an extra output argument after Statement.Args.
	OutParam
)

// Dialect renders SQL for one backend.
type Dialect interface {
	Name() string
	Version() *version.Version

	Placeholder(n int) string
	QuoteIdentifier(name string) (string, error)
	ValidateIdentifier(name string) error
	MaxIdentifierLength() int

	RenderType(f *schema.Field) (string, error)
	RenderExpression(e ast.Expr) (Statement, error)
	RenderQuery(q ast.Expr) (Statement, error)
	RenderSelect(sel ast.Select) (Statement, error)
	RenderCount(sel ast.Select) (Statement, error)
	RenderInsert(t *schema.Table, values map[string]any) (Statement, error)
	RenderUpdate(t *schema.Table, where ast.Expr, values map[string]any) (Statement, error)
	RenderDelete(t *schema.Table, where ast.Expr) (Statement, error)
	RenderCreateTable(t *schema.Table, deferred ...string) ([]string, error)
	RenderAlter(op plan.Op) ([]string, error)

	// TypesEquivalent reports whether a live column of the given native type
	// satisfies the declared field.
	TypesEquivalent(f *schema.Field, native string) bool
	NormalizeType(native string) string

	SupportsSavepoints() bool
	TransactionalDDL() bool
	SupportsForwardReferences() bool
	SupportsAddConstraint() bool
	CanAlterColumnType() bool
	IDRetrieval() IDRetrieval

	// Savepoint returns the statements that create, release and roll back
	// to a savepoint. Release is empty where the backend has none.
	Savepoint(name string) (create, release, rollback string)
	// AdvisoryLock returns statements taking and releasing a named
	// session lock, when the backend offers one.
	AdvisoryLock(name string) (lock, unlock Statement, ok bool)
	// TableRedefinition reports whether column changes are made by
	// rebuilding the table, and the session statements such a plan needs.
	TableRedefinition() (TableRedefinition, bool)
}

// TableRedefinition brackets a plan that rebuilds tables. Disable runs on
// the session before the transaction and Enable after it. Check runs last
// inside the transaction and returns one row per broken foreign key.
type TableRedefinition struct {
	Disable string
	Check   string
	Enable  string
}

// Options tune a dialect.
type Options struct {
	// ServerVersion gates syntax such as OFFSET/FETCH. Empty selects the
	// newest syntax the dialect knows.
	ServerVersion string
}

type constructor func(v *version.Version) *base

var constructors = map[string]constructor{
	"sqlite":      newSQLite,
	"postgres":    newPostgres,
	"cockroachdb": newCockroach,
	"mysql":       newMySQL,
	"mssql":       newMSSQL,
	"oracle":      newOracle,
	"firebird":    newFirebird,
}

var aliases = map[string]string{
	"sqlite3":    "sqlite",
	"postgresql": "postgres",
	"cockroach":  "cockroachdb",
	"sqlserver":  "mssql",
	"mariadb":    "mysql",
}

// Names lists the supported dialects.
func Names() []string {
	out := make([]string, 0, len(constructors))
	for name := range constructors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New returns the dialect called name.
func New(name string, opts Options) (Dialect, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}

	var v *version.Version
	if opts.ServerVersion != "" {
		parsed, err := version.NewVersion(opts.ServerVersion)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid server version %q: %w", name, opts.ServerVersion, err)
		}
		v = parsed
	}

	b := ctor(v)
	b.version = v
	return b, nil
}

// MustNew is New that panics on error.
func MustNew(name string, opts Options) Dialect {
	d, err := New(name, opts)
	if err != nil {
		panic(err)
	}
	return d
}

// atLeast reports whether v is unset or not older than min.
func atLeast(v *version.Version, min string) bool {
	if v == nil {
		return true
	}
	return v.GreaterThanOrEqual(version.Must(version.NewVersion(min)))
}
