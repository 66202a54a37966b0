// Package plan describes migration operations and the ordered plans the
// planner builds from them.
package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/godal/schema"
)

// Op is a single schema change. Each op carries enough data to be rendered
// on its own.
type Op interface {
	op()
	// TableName is the table the op changes.
	TableName() string
	// Destructive reports whether the op can lose data.
	Destructive() bool
	String() string
}

// CreateTable creates a table with its columns and inline foreign keys.
// Foreign keys named in Deferred are left out and added later by
// AddConstraint ops.
type CreateTable struct {
	Table    *schema.Table
	Deferred []string
}

// DropTable drops a table that is no longer declared.
type DropTable struct {
	Name string
}

// AddColumn adds a declared field to an existing table. ForceNullable is set
// when a NOT NULL field without a default must be added as nullable.
type AddColumn struct {
	Table         string
	Field         *schema.Field
	ForceNullable bool
}

// DropColumn drops a live column that is no longer declared.
type DropColumn struct {
	Table  string
	Column string
}

// AlterColumnType changes a column type in place.
type AlterColumnType struct {
	Table string
	Field *schema.Field
	From  string
}

// ConvertColumn changes a column type the backend cannot alter in place. It
// renders as one unit: add a temporary column, copy the converted values,
// drop the original and rename the temporary column. Indexes lists the live
// indexes covering the column; they are dropped before and created again
// after the swap.
type ConvertColumn struct {
	Table   string
	Field   *schema.Field
	From    string
	Temp    string
	Indexes []schema.IndexInfo
}

// RedefineTable rebuilds an existing table from its declared definition:
// the new table is created under a temporary name, the carried columns are
// copied, the old table is dropped and the new one renamed. Backends whose
// ALTER TABLE cannot change a column use it instead of ConvertColumn.
type RedefineTable struct {
	Table *schema.Table
	Copy  []CopyColumn
	// ForceNullable names added NOT NULL fields without a default.
	ForceNullable []string
	// Indexes are live indexes that are not declared. They are created
	// again so that dropping them stays a separate step.
	Indexes []schema.IndexInfo
	// Dropped lists live columns without a declared field.
	Dropped []string
}

// CopyColumn carries a live column into a redefined table. Convert casts
// the values to the declared type.
type CopyColumn struct {
	From    string
	To      string
	Convert bool
}

// RenameColumn renames a live column. Renames are only planned from explicit
// hints.
type RenameColumn struct {
	Table string
	From  string
	To    string
}

// AddIndex creates a declared index.
type AddIndex struct {
	Table string
	Index schema.IndexInfo
}

// DropIndex drops a live index matched by name.
type DropIndex struct {
	Table string
	Name  string
}

// AddConstraint adds a foreign key to an existing table.
type AddConstraint struct {
	Table string
	FK    schema.ForeignKey
}

// DropConstraint drops a named constraint.
type DropConstraint struct {
	Table string
	Name  string
}

func (CreateTable) op()     {}
func (DropTable) op()       {}
func (AddColumn) op()       {}
func (DropColumn) op()      {}
func (AlterColumnType) op() {}
func (ConvertColumn) op()   {}
func (RedefineTable) op()   {}
func (RenameColumn) op()    {}
func (AddIndex) op()        {}
func (DropIndex) op()       {}
func (AddConstraint) op()   {}
func (DropConstraint) op()  {}

func (o CreateTable) TableName() string     { return o.Table.Name() }
func (o DropTable) TableName() string       { return o.Name }
func (o AddColumn) TableName() string       { return o.Table }
func (o DropColumn) TableName() string      { return o.Table }
func (o AlterColumnType) TableName() string { return o.Table }
func (o ConvertColumn) TableName() string   { return o.Table }
func (o RedefineTable) TableName() string   { return o.Table.Name() }
func (o RenameColumn) TableName() string    { return o.Table }
func (o AddIndex) TableName() string        { return o.Table }
func (o DropIndex) TableName() string       { return o.Table }
func (o AddConstraint) TableName() string   { return o.Table }
func (o DropConstraint) TableName() string  { return o.Table }

func (CreateTable) Destructive() bool     { return false }
func (DropTable) Destructive() bool       { return true }
func (AddColumn) Destructive() bool       { return false }
func (DropColumn) Destructive() bool      { return true }
func (AlterColumnType) Destructive() bool { return false }
func (ConvertColumn) Destructive() bool   { return false }
func (o RedefineTable) Destructive() bool { return len(o.Dropped) > 0 }
func (RenameColumn) Destructive() bool    { return false }
func (AddIndex) Destructive() bool        { return false }
func (DropIndex) Destructive() bool       { return true }
func (AddConstraint) Destructive() bool   { return false }
func (DropConstraint) Destructive() bool  { return true }

func (o CreateTable) String() string {
	fields := o.Table.Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name()
	}
	return fmt.Sprintf("create table %s (%s)", o.Table.Name(), strings.Join(cols, ", "))
}

func (o DropTable) String() string  { return "drop table " + o.Name }
func (o DropColumn) String() string { return fmt.Sprintf("drop column %s.%s", o.Table, o.Column) }

func (o AddColumn) String() string {
	return fmt.Sprintf("add column %s.%s %s", o.Table, o.Field.Name(), o.Field.Type())
}

func (o AlterColumnType) String() string {
	return fmt.Sprintf("alter column %s.%s %s -> %s", o.Table, o.Field.Name(), o.From, o.Field.Type())
}

func (o ConvertColumn) String() string {
	return fmt.Sprintf("convert column %s.%s %s -> %s", o.Table, o.Field.Name(), o.From, o.Field.Type())
}

func (o RedefineTable) String() string {
	var changes []string
	for _, c := range o.Copy {
		switch {
		case c.Convert:
			changes = append(changes, "convert "+c.To)
		case c.From != c.To:
			changes = append(changes, "rename "+c.From+" -> "+c.To)
		}
	}
	for _, f := range o.Table.Fields() {
		if !slices.ContainsFunc(o.Copy, func(c CopyColumn) bool { return c.To == f.Name() }) {
			changes = append(changes, "add "+f.Name())
		}
	}
	for _, name := range o.Dropped {
		changes = append(changes, "drop "+name)
	}
	return fmt.Sprintf("redefine table %s (%s)", o.Table.Name(), strings.Join(changes, ", "))
}

func (o RenameColumn) String() string {
	return fmt.Sprintf("rename column %s.%s -> %s", o.Table, o.From, o.To)
}

func (o AddIndex) String() string {
	kind := "index"
	if o.Index.Unique {
		kind = "unique index"
	}
	return fmt.Sprintf("add %s %s on %s (%s)", kind, o.Index.Name, o.Table, strings.Join(o.Index.Fields, ", "))
}

func (o DropIndex) String() string { return fmt.Sprintf("drop index %s on %s", o.Name, o.Table) }

func (o AddConstraint) String() string {
	return fmt.Sprintf("add foreign key %s on %s (%s) -> %s", o.FK.Name, o.Table,
		strings.Join(o.FK.Fields, ", "), o.FK.RefTable)
}

func (o DropConstraint) String() string {
	return fmt.Sprintf("drop constraint %s on %s", o.Name, o.Table)
}
