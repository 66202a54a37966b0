package sqlgen

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

// RenderType returns the native column type of f. Identity fields render
// their full key definition.
func (b *base) RenderType(f *schema.Field) (string, error) {
	if f.IsIdentity() {
		return b.h.identity(f), nil
	}
	return b.h.columnType(f.Type())
}

// castTarget is the type used in CAST when converting a column.
func (b *base) castTarget(t types.Type) (string, error) {
	if b.h.castType != nil {
		return b.h.castType(t)
	}
	return b.h.columnType(t)
}

// literal renders a constant default. Only plain Go scalars qualify.
func (b *base) literal(v any) (string, error) {
	switch x := v.(type) {
	case bool:
		if b.h.boolean != nil {
			return b.h.boolean(x), nil
		}
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int8, int16, int32, int64:
		return fmt.Sprint(x), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil
	case float32:
		return b.literal(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("%s: default %v is not a finite number", b.h.name, x)
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		for _, c := range x {
			if unicode.IsControl(c) {
				return "", fmt.Errorf("%s: default contains a control character", b.h.name)
			}
		}
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case time.Time:
		return "'" + x.UTC().Format("2006-01-02 15:04:05") + "'", nil
	}
	return "", fmt.Errorf("%s: unsupported default of type %T", b.h.name, v)
}

func (b *base) defaultClause(f *schema.Field) (string, error) {
	if k := f.DefaultKeyword(); k != 0 {
		if b.h.keyword != nil {
			kw, err := b.h.keyword(k)
			if err != nil {
				return "", err
			}
			return " DEFAULT " + kw, nil
		}
		return " DEFAULT " + k.String(), nil
	}
	v, ok := f.Default()
	if !ok {
		return "", nil
	}
	if f.Type().Kind() == types.List {
		enc, err := EncodeList(v)
		if err != nil {
			return "", fmt.Errorf("field %s: default: %w", f.Name(), err)
		}
		v = enc
	}
	lit, err := b.literal(v)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", f.Name(), err)
	}
	return " DEFAULT " + lit, nil
}

// columnDef renders "name type [DEFAULT ..] [NOT NULL] [UNIQUE]". When
// forceNullable is set the NOT NULL constraint is left out.
func (b *base) columnDef(f *schema.Field, forceNullable bool) (string, error) {
	name, err := b.QuoteIdentifier(f.Name())
	if err != nil {
		return "", err
	}
	typ, err := b.RenderType(f)
	if err != nil {
		return "", err
	}
	if f.IsIdentity() {
		return name + " " + typ, nil
	}
	def, err := b.defaultClause(f)
	if err != nil {
		return "", err
	}
	sql := name + " " + typ + def
	if !f.Nullable() && !forceNullable {
		sql += " NOT NULL"
	}
	if f.IsUnique() && !f.IsPrimaryKey() {
		sql += " UNIQUE"
	}
	return sql, nil
}

func (b *base) quoteList(names []string) (string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := b.QuoteIdentifier(n)
		if err != nil {
			return "", err
		}
		out[i] = q
	}
	return strings.Join(out, ", "), nil
}

func (b *base) onDeleteClause(p schema.OnDeletePolicy) string {
	if b.h.onDelete != nil {
		return b.h.onDelete(p)
	}
	if p == 0 {
		return ""
	}
	return " ON DELETE " + p.String()
}

// foreignKey renders "CONSTRAINT name FOREIGN KEY (..) REFERENCES t (..)".
func (b *base) foreignKey(fk schema.ForeignKey) (string, error) {
	name, err := b.quoteDerived(fk.Name)
	if err != nil {
		return "", err
	}
	cols, err := b.quoteList(fk.Fields)
	if err != nil {
		return "", err
	}
	ref, err := b.QuoteIdentifier(fk.RefTable)
	if err != nil {
		return "", err
	}
	refCols, err := b.quoteList(fk.RefFields)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)%s",
		name, cols, ref, refCols, b.onDeleteClause(fk.OnDelete)), nil
}

func (b *base) createIndex(table string, idx schema.IndexInfo) (string, error) {
	qt, err := b.QuoteIdentifier(table)
	if err != nil {
		return "", err
	}
	name, err := b.QuoteIdentifier(idx.Name)
	if err != nil {
		return "", err
	}
	cols, err := b.quoteList(idx.Fields)
	if err != nil {
		return "", err
	}
	kw := "INDEX"
	if idx.Unique {
		kw = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kw, name, qt, cols), nil
}

// RenderCreateTable renders the CREATE TABLE statement of t followed by its
// index statements. Foreign keys named in deferred are left out.
func (b *base) RenderCreateTable(t *schema.Table, deferred ...string) ([]string, error) {
	create, err := b.tableDefinition(t, t.Name(), nil, deferred)
	if err != nil {
		return nil, err
	}
	stmts := []string{create}
	if b.h.afterCreate != nil {
		extra, err := b.h.afterCreate(b, t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, extra...)
	}
	for _, idx := range t.Indexes() {
		s, err := b.createIndex(t.Name(), idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// tableDefinition renders the CREATE TABLE statement of t under name.
// Fields named in forceNullable lose their NOT NULL constraint.
func (b *base) tableDefinition(t *schema.Table, name string, forceNullable, deferred []string) (string, error) {
	table, err := b.QuoteIdentifier(name)
	if err != nil {
		return "", err
	}

	var defs []string
	for _, f := range t.Fields() {
		def, err := b.columnDef(f, slices.Contains(forceNullable, f.Name()))
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}

	// Table level primary key unless an identity column carries it
	if t.Identity() == nil {
		cols, err := b.quoteList(t.PrimaryKey())
		if err != nil {
			return "", err
		}
		defs = append(defs, "PRIMARY KEY ("+cols+")")
	}

	for _, fk := range t.ForeignKeys() {
		if slices.Contains(deferred, fk.Name) {
			continue
		}
		def, err := b.foreignKey(fk)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	return "CREATE TABLE " + table + " (" + strings.Join(defs, ", ") + ")" + b.h.tableSuffix, nil
}

func (b *base) alterTable(table string) (string, error) {
	qt, err := b.QuoteIdentifier(table)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + qt + " ", nil
}

func (b *base) renameColumn(table, from, to string) (string, error) {
	if _, err := b.QuoteIdentifier(from); err != nil {
		return "", err
	}
	if _, err := b.QuoteIdentifier(to); err != nil {
		return "", err
	}
	if _, err := b.QuoteIdentifier(table); err != nil {
		return "", err
	}
	if b.h.renameColumn != nil {
		return b.h.renameColumn(table, from, to), nil
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", b.quote(table), b.quote(from), b.quote(to)), nil
}

func (b *base) addColumn(table string, f *schema.Field, forceNullable bool) (string, error) {
	alter, err := b.alterTable(table)
	if err != nil {
		return "", err
	}
	def, err := b.columnDef(f, forceNullable)
	if err != nil {
		return "", err
	}
	return alter + b.addClause(def), nil
}

func (b *base) dropColumn(table, column string) (string, error) {
	alter, err := b.alterTable(table)
	if err != nil {
		return "", err
	}
	col, err := b.QuoteIdentifier(column)
	if err != nil {
		return "", err
	}
	return alter + b.h.dropColumn + " " + col, nil
}

func (b *base) addClause(def string) string {
	if b.h.parenAdd {
		return b.h.addColumn + " (" + def + ")"
	}
	return b.h.addColumn + " " + def
}

// RenderAlter renders the statements of one migration op.
func (b *base) RenderAlter(op plan.Op) ([]string, error) {
	switch o := op.(type) {
	case plan.CreateTable:
		return b.RenderCreateTable(o.Table, o.Deferred...)

	case plan.DropTable:
		qt, err := b.QuoteIdentifier(o.Name)
		if err != nil {
			return nil, err
		}
		return []string{"DROP TABLE " + qt}, nil

	case plan.AddColumn:
		sql, err := b.addColumn(o.Table, o.Field, o.ForceNullable)
		if err != nil {
			return nil, err
		}
		stmts := []string{sql}
		// Backends without ADD CONSTRAINT take the reference inline.
		if o.Field.Type().IsReference() && !b.h.addConstraint {
			stmts[0], err = b.inlineReference(sql, o.Field)
			if err != nil {
				return nil, err
			}
		}
		return stmts, nil

	case plan.DropColumn:
		sql, err := b.dropColumn(o.Table, o.Column)
		if err != nil {
			return nil, err
		}
		return []string{sql}, nil

	case plan.AlterColumnType:
		if b.h.alterType == nil {
			return nil, &dalerr.SyntaxTranslationError{Dialect: b.h.name, Construct: "ALTER COLUMN TYPE",
				Reason: "column types cannot be altered in place"}
		}
		qt, err := b.QuoteIdentifier(o.Table)
		if err != nil {
			return nil, err
		}
		qc, err := b.QuoteIdentifier(o.Field.Name())
		if err != nil {
			return nil, err
		}
		typ, err := b.h.columnType(o.Field.Type())
		if err != nil {
			return nil, err
		}
		return b.h.alterType(qt, qc, typ, o.Field), nil

	case plan.ConvertColumn:
		return b.convertColumn(o)

	case plan.RedefineTable:
		if b.h.redefinition == nil {
			return nil, &dalerr.SyntaxTranslationError{Dialect: b.h.name, Construct: "REDEFINE TABLE",
				Reason: "tables are altered in place"}
		}
		return b.redefineTable(o)

	case plan.RenameColumn:
		sql, err := b.renameColumn(o.Table, o.From, o.To)
		if err != nil {
			return nil, err
		}
		return []string{sql}, nil

	case plan.AddIndex:
		sql, err := b.createIndex(o.Table, o.Index)
		if err != nil {
			return nil, err
		}
		return []string{sql}, nil

	case plan.DropIndex:
		qt, err := b.QuoteIdentifier(o.Table)
		if err != nil {
			return nil, err
		}
		qi, err := b.QuoteIdentifier(o.Name)
		if err != nil {
			return nil, err
		}
		if b.h.dropIndex != nil {
			return []string{b.h.dropIndex(qt, qi)}, nil
		}
		return []string{"DROP INDEX " + qi}, nil

	case plan.AddConstraint:
		if !b.h.addConstraint {
			return nil, &dalerr.SyntaxTranslationError{Dialect: b.h.name, Construct: "ADD CONSTRAINT",
				Reason: "constraints can only be declared in CREATE TABLE"}
		}
		alter, err := b.alterTable(o.Table)
		if err != nil {
			return nil, err
		}
		fk, err := b.foreignKey(o.FK)
		if err != nil {
			return nil, err
		}
		return []string{alter + "ADD " + fk}, nil

	case plan.DropConstraint:
		if !b.h.addConstraint {
			return nil, &dalerr.SyntaxTranslationError{Dialect: b.h.name, Construct: "DROP CONSTRAINT",
				Reason: "constraints can only be dropped with their table"}
		}
		alter, err := b.alterTable(o.Table)
		if err != nil {
			return nil, err
		}
		name, err := b.quoteDerived(o.Name)
		if err != nil {
			return nil, err
		}
		return []string{alter + b.h.dropConstraint + " " + name}, nil
	}
	return nil, &dalerr.SyntaxTranslationError{Dialect: b.h.name, Construct: fmt.Sprintf("%T", op)}
}

// inlineReference appends a REFERENCES clause to an ADD COLUMN statement.
func (b *base) inlineReference(sql string, f *schema.Field) (string, error) {
	ref, err := b.QuoteIdentifier(f.Type().RefTable())
	if err != nil {
		return "", err
	}
	target := schema.IdentityField
	if t := f.Referenced(); t != nil && len(t.PrimaryKey()) == 1 {
		target = t.PrimaryKey()[0]
	}
	col, err := b.QuoteIdentifier(target)
	if err != nil {
		return "", err
	}
	return sql + " REFERENCES " + ref + " (" + col + ")" + b.onDeleteClause(f.OnDeletePolicy()), nil
}

// convertColumn expands a type change into add, copy, drop and rename. The
// temporary column carries the declared default and UNIQUE constraint, NOT
// NULL is restored once the values are copied, and indexes covering the
// column are dropped first and created again at the end.
func (b *base) convertColumn(o plan.ConvertColumn) ([]string, error) {
	if b.h.redefinition != nil {
		return nil, &dalerr.SyntaxTranslationError{Dialect: b.h.name, Construct: "CONVERT COLUMN",
			Reason: "column types change by redefining the table"}
	}
	temp := o.Temp
	if temp == "" {
		temp = o.Field.Name() + "_tmp"
	}
	if _, err := b.QuoteIdentifier(temp); err != nil {
		return nil, err
	}
	def, err := b.columnDef(o.Field, true)
	if err != nil {
		return nil, err
	}
	// columnDef starts with the quoted field name.
	col, err := b.QuoteIdentifier(o.Field.Name())
	if err != nil {
		return nil, err
	}
	def = b.quote(temp) + strings.TrimPrefix(def, col)
	cast, err := b.castTarget(o.Field.Type())
	if err != nil {
		return nil, err
	}
	alter, err := b.alterTable(o.Table)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, idx := range o.Indexes {
		drop, err := b.RenderAlter(plan.DropIndex{Table: o.Table, Name: idx.Name})
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, drop...)
	}
	stmts = append(stmts,
		alter+b.addClause(def),
		fmt.Sprintf("UPDATE %s SET %s = CAST(%s AS %s)", b.quote(o.Table), b.quote(temp), col, cast),
	)
	drop, err := b.dropColumn(o.Table, o.Field.Name())
	if err != nil {
		return nil, err
	}
	rename, err := b.renameColumn(o.Table, temp, o.Field.Name())
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, drop, rename)
	if !o.Field.Nullable() {
		stmts = append(stmts, alter+"ALTER COLUMN "+col+" SET NOT NULL")
	}
	for _, idx := range o.Indexes {
		s, err := b.createIndex(o.Table, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// redefineTable rebuilds a table under a temporary name, copies the carried
// columns and swaps the new table in.
func (b *base) redefineTable(o plan.RedefineTable) ([]string, error) {
	t := o.Table
	temp := t.Name() + "__new"
	create, err := b.tableDefinition(t, temp, o.ForceNullable, nil)
	if err != nil {
		return nil, err
	}
	table, err := b.QuoteIdentifier(t.Name())
	if err != nil {
		return nil, err
	}
	qtemp := b.quote(temp)

	into := make([]string, len(o.Copy))
	from := make([]string, len(o.Copy))
	for i, c := range o.Copy {
		if into[i], err = b.QuoteIdentifier(c.To); err != nil {
			return nil, err
		}
		if from[i], err = b.QuoteIdentifier(c.From); err != nil {
			return nil, err
		}
		if !c.Convert {
			continue
		}
		f := t.Field(c.To)
		if f == nil {
			return nil, fmt.Errorf("%s: redefine %s: unknown field %s", b.h.name, t.Name(), c.To)
		}
		cast, err := b.castTarget(f.Type())
		if err != nil {
			return nil, err
		}
		from[i] = "CAST(" + from[i] + " AS " + cast + ")"
	}

	stmts := []string{create}
	if len(o.Copy) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			qtemp, strings.Join(into, ", "), strings.Join(from, ", "), table))
	}
	stmts = append(stmts, "DROP TABLE "+table, "ALTER TABLE "+qtemp+" RENAME TO "+table)
	for _, idx := range append(t.Indexes(), o.Indexes...) {
		s, err := b.createIndex(t.Name(), idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}
