package sqlgen

import (
	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

// pagination selects how LIMIT and OFFSET are expressed.
type pagination int

const (
	limitOffset pagination = iota
	offsetFetch
	rowNumberWindow
	rowNumNesting
	firstSkip
)

// hooks is the capability set that makes a base renderer a concrete
// dialect. Nil funcs fall back to the standard SQL rendering.
type hooks struct {
	name        string
	openQuote   string
	closeQuote  string
	placeholder func(n int) string
	maxIdent    int
	reserved    []string

	columnType func(t types.Type) (string, error)
	castType   func(t types.Type) (string, error)
	identity   func(f *schema.Field) string
	boolean    func(v bool) string
	keyword    func(k schema.DefaultKeyword) (string, error)
	typeAlias  map[string]string

	binary       func(op ast.BinaryOp, left, right string) (string, bool, error)
	function     func(fn ast.FuncName, args []string) (string, bool)
	likeSpecials string
	bindValue    func(v any) any

	paginate   pagination
	noLimit    string
	tableAlias string

	addColumn      string
	parenAdd       bool
	dropColumn     string
	alterType      func(table, column, typ string, f *schema.Field) []string
	renameColumn   func(table, from, to string) string
	dropIndex      func(table, name string) string
	dropConstraint string
	onDelete       func(p schema.OnDeletePolicy) string
	tableSuffix    string
	afterCreate    func(b *base, t *schema.Table) ([]string, error)
	insertDefaults func(table string, key string) string
	returning      func(sql, key string, n int) string

	retrieval        IDRetrieval
	savepoints       bool
	transactionalDDL bool
	forwardRefs      bool
	addConstraint    bool
	savepoint        func(name string) (create, release, rollback string)
	advisoryLock     func(name string) (lock, unlock Statement, ok bool)
	redefinition     *TableRedefinition
}

// base implements Dialect on top of a hook set.
type base struct {
	h        hooks
	version  *version.Version
	reserved map[string]bool
}

func newBase(h hooks) *base {
	if h.placeholder == nil {
		h.placeholder = func(int) string { return "?" }
	}
	if h.openQuote == "" {
		h.openQuote, h.closeQuote = `"`, `"`
	}
	if h.likeSpecials == "" {
		h.likeSpecials = "%_"
	}
	if h.tableAlias == "" {
		h.tableAlias = " AS "
	}
	if h.addColumn == "" {
		h.addColumn = "ADD COLUMN"
	}
	if h.dropColumn == "" {
		h.dropColumn = "DROP COLUMN"
	}
	if h.dropConstraint == "" {
		h.dropConstraint = "DROP CONSTRAINT"
	}
	if h.savepoint == nil {
		h.savepoint = func(name string) (string, string, string) {
			return "SAVEPOINT " + name, "RELEASE SAVEPOINT " + name, "ROLLBACK TO SAVEPOINT " + name
		}
	}
	b := &base{h: h, reserved: make(map[string]bool)}
	for _, w := range commonReserved {
		b.reserved[w] = true
	}
	for _, w := range h.reserved {
		b.reserved[w] = true
	}
	return b
}

func (b *base) Name() string                { return b.h.name }
func (b *base) Version() *version.Version   { return b.version }
func (b *base) Placeholder(n int) string    { return b.h.placeholder(n) }
func (b *base) MaxIdentifierLength() int    { return b.h.maxIdent }
func (b *base) SupportsSavepoints() bool    { return b.h.savepoints }
func (b *base) TransactionalDDL() bool      { return b.h.transactionalDDL }
func (b *base) SupportsAddConstraint() bool { return b.h.addConstraint }
func (b *base) CanAlterColumnType() bool    { return b.h.alterType != nil }
func (b *base) IDRetrieval() IDRetrieval    { return b.h.retrieval }

// SupportsForwardReferences reports whether a CREATE TABLE may reference a
// table that does not exist yet.
func (b *base) SupportsForwardReferences() bool { return b.h.forwardRefs }

func (b *base) Savepoint(name string) (create, release, rollback string) {
	return b.h.savepoint(name)
}

func (b *base) AdvisoryLock(name string) (lock, unlock Statement, ok bool) {
	if b.h.advisoryLock == nil {
		return Statement{}, Statement{}, false
	}
	return b.h.advisoryLock(name)
}

func (b *base) TableRedefinition() (TableRedefinition, bool) {
	if b.h.redefinition == nil {
		return TableRedefinition{}, false
	}
	return *b.h.redefinition, true
}

func (b *base) bindValue(v any) any {
	if b.h.bindValue != nil {
		return b.h.bindValue(v)
	}
	return v
}
