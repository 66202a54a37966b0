package schema

import (
	"slices"

	"github.com/satishbabariya/godal/query/ast"
)

// IndexInfo describes a declared secondary index.
type IndexInfo struct {
	Name   string
	Fields []string
	Unique bool
}

// ForeignKey is derived from a reference field at finalization.
type ForeignKey struct {
	Name      string
	Fields    []string
	RefTable  string
	RefFields []string
	OnDelete  OnDeletePolicy
}

// Table is a finalized table definition. Its accessors return copies, so a
// *Table can be shared between goroutines without locking.
type Table struct {
	name    string
	alias   string
	fields  []*Field
	byName  map[string]*Field
	pk      []string
	indexes []IndexInfo
	fks     []ForeignKey
	reg     *Registry
}

func (t *Table) Name() string  { return t.name }
func (t *Table) Alias() string { return t.alias }

// Ident is the name used to qualify columns: the alias when set.
func (t *Table) Ident() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// Key returns the primary key fields.
func (t *Table) Key() []ast.FieldRef {
	out := make([]ast.FieldRef, 0, len(t.pk))
	for _, name := range t.pk {
		out = append(out, t.byName[name])
	}
	return out
}

// Fields returns the fields in declaration order.
func (t *Table) Fields() []*Field { return slices.Clone(t.fields) }

// Field looks a field up by name. It returns nil when there is none.
func (t *Table) Field(name string) *Field { return t.byName[name] }

// PrimaryKey returns the names of the primary key fields.
func (t *Table) PrimaryKey() []string { return slices.Clone(t.pk) }

// Identity returns the auto-generated key field, or nil.
func (t *Table) Identity() *Field {
	for _, f := range t.fields {
		if f.typ.IsIdentity() {
			return f
		}
	}
	return nil
}

func (t *Table) Indexes() []IndexInfo {
	out := make([]IndexInfo, len(t.indexes))
	for i, idx := range t.indexes {
		idx.Fields = slices.Clone(idx.Fields)
		out[i] = idx
	}
	return out
}

func (t *Table) ForeignKeys() []ForeignKey {
	out := make([]ForeignKey, len(t.fks))
	for i, fk := range t.fks {
		fk.Fields = slices.Clone(fk.Fields)
		fk.RefFields = slices.Clone(fk.RefFields)
		out[i] = fk
	}
	return out
}

// Columns returns a column expression for every field, in declaration
// order.
func (t *Table) Columns() []ast.Expr {
	out := make([]ast.Expr, 0, len(t.fields))
	for _, f := range t.fields {
		out = append(out, ast.Col(f))
	}
	return out
}

// WithAlias returns a copy of the table that renders as alias. Fields of the
// copy report it as their source, which makes self-joins expressible.
func (t *Table) WithAlias(alias string) *Table {
	c := &Table{
		name:    t.name,
		alias:   alias,
		pk:      t.pk,
		indexes: t.indexes,
		fks:     t.fks,
		reg:     t.reg,
		byName:  make(map[string]*Field, len(t.fields)),
	}
	for _, f := range t.fields {
		fc := f.clone(c)
		c.fields = append(c.fields, fc)
		c.byName[fc.name] = fc
	}
	return c
}

// Select starts a select over the table.
func (t *Table) Select() ast.Select { return ast.From(t) }
