package schema

import (
	"slices"

	"github.com/satishbabariya/godal/types"
)

// TableItem is an argument of Registry.DefineTable: a field, an index or a
// primary key declaration.
type TableItem interface {
	tableItem()
}

// FieldDef declares a field.
type FieldDef struct {
	Name string
	Type types.Type
	Opts []Option
}

// IndexDef declares a secondary index.
type IndexDef struct {
	Name   string
	Fields []string
	Unique bool
}

// PrimaryKeyDef overrides the implicit identity key.
type PrimaryKeyDef struct {
	Fields []string
}

func (FieldDef) tableItem()      {}
func (IndexDef) tableItem()      {}
func (PrimaryKeyDef) tableItem() {}

// NewField declares a field of type t.
func NewField(name string, t types.Type, opts ...Option) FieldDef {
	return FieldDef{Name: name, Type: t, Opts: slices.Clone(opts)}
}

// Index declares a non-unique index over fields.
func Index(name string, fields ...string) IndexDef {
	return IndexDef{Name: name, Fields: slices.Clone(fields)}
}

// UniqueIndex declares a unique index over fields.
func UniqueIndex(name string, fields ...string) IndexDef {
	return IndexDef{Name: name, Fields: slices.Clone(fields), Unique: true}
}

// PrimaryKey declares an explicit primary key.
func PrimaryKey(fields ...string) PrimaryKeyDef {
	return PrimaryKeyDef{Fields: slices.Clone(fields)}
}
