package schema

import (
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/types"
)

// OnDeletePolicy is the referential action of a foreign key.
type OnDeletePolicy int

const (
	Cascade OnDeletePolicy = iota + 1
	SetNull
	Restrict
	NoAction
)

func (p OnDeletePolicy) String() string {
	switch p {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case Restrict:
		return "RESTRICT"
	case NoAction:
		return "NO ACTION"
	}
	return ""
}

// ParseOnDelete maps a policy name such as "set null" or "cascade".
func ParseOnDelete(s string) (OnDeletePolicy, bool) {
	switch s {
	case "cascade", "CASCADE":
		return Cascade, true
	case "set null", "set_null", "SET NULL":
		return SetNull, true
	case "restrict", "RESTRICT":
		return Restrict, true
	case "no action", "no_action", "NO ACTION":
		return NoAction, true
	}
	return 0, false
}

// DefaultKeyword is a server-side default expression.
type DefaultKeyword int

const (
	CurrentTimestamp DefaultKeyword = iota + 1
	CurrentDate
	CurrentTime
)

func (k DefaultKeyword) String() string {
	switch k {
	case CurrentTimestamp:
		return "CURRENT_TIMESTAMP"
	case CurrentDate:
		return "CURRENT_DATE"
	case CurrentTime:
		return "CURRENT_TIME"
	}
	return ""
}

// Option configures a field declaration.
type Option func(*Field)

// NotNull forbids NULL values.
func NotNull() Option { return func(f *Field) { f.notNull = true } }

// Unique adds a uniqueness constraint on the column.
func Unique() Option { return func(f *Field) { f.unique = true } }

// Default sets a constant default. Only plain Go scalars reach DDL.
func Default(v any) Option {
	return func(f *Field) { f.def, f.hasDefault = v, true }
}

// DefaultExpr sets a server-side default keyword.
func DefaultExpr(k DefaultKeyword) Option { return func(f *Field) { f.defExpr = k } }

// DefaultFunc sets a generator evaluated on every insert that omits the
// field. Generators never appear in DDL.
func DefaultFunc(fn func() any) Option { return func(f *Field) { f.defFunc = fn } }

// OnDelete sets the referential action of a reference field.
func OnDelete(p OnDeletePolicy) Option { return func(f *Field) { f.onDelete = p } }

// Label sets a human readable name.
func Label(s string) Option { return func(f *Field) { f.label = s } }

// Field is a column of a table. Fields are created by Registry.DefineTable
// and never change afterwards.
type Field struct {
	name       string
	typ        types.Type
	notNull    bool
	unique     bool
	def        any
	hasDefault bool
	defExpr    DefaultKeyword
	defFunc    func() any
	onDelete   OnDeletePolicy
	label      string
	table      *Table
}

func (f *Field) Name() string         { return f.name }
func (f *Field) Type() types.Type     { return f.typ }
func (f *Field) Source() ast.TableRef { return f.table }
func (f *Field) Table() *Table        { return f.table }
func (f *Field) Nullable() bool       { return !f.notNull }
func (f *Field) IsUnique() bool       { return f.unique }
func (f *Field) Label() string        { return f.label }

// Default returns the constant default, if any.
func (f *Field) Default() (any, bool) { return f.def, f.hasDefault }

// DefaultKeyword returns the server-side default keyword, or zero.
func (f *Field) DefaultKeyword() DefaultKeyword { return f.defExpr }

// HasGenerator reports whether inserts compute a value for the field.
func (f *Field) HasGenerator() bool { return f.defFunc != nil }

// Generate runs the default generator.
func (f *Field) Generate() any {
	if f.defFunc == nil {
		return nil
	}
	return f.defFunc()
}

// OnDeletePolicy returns the referential action; references default to
// Cascade.
func (f *Field) OnDeletePolicy() OnDeletePolicy {
	if f.onDelete == 0 && f.typ.IsReference() {
		return Cascade
	}
	return f.onDelete
}

// IsPrimaryKey reports whether the field is part of its table's key.
func (f *Field) IsPrimaryKey() bool {
	for _, k := range f.table.pk {
		if k == f.name {
			return true
		}
	}
	return false
}

// IsIdentity reports whether the field is an auto-generated key.
func (f *Field) IsIdentity() bool { return f.typ.IsIdentity() }

// Referenced returns the table a reference field points to. It is nil for
// other fields and before the registry is finalized.
func (f *Field) Referenced() *Table {
	if !f.typ.IsReference() || f.table.reg == nil {
		return nil
	}
	return f.table.reg.Table(f.typ.RefTable())
}

func (f *Field) clone(t *Table) *Field {
	c := *f
	c.table = t
	return &c
}
