// Package planner diffs a declared schema against the live database and
// builds the migration plan that reconciles them.
package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/internal/debug"
	"github.com/satishbabariya/godal/migrate/history"
	"github.com/satishbabariya/godal/migrate/introspect"
	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

// Mode selects which changes a plan may schedule.
type Mode int

const (
	// Additive schedules only changes that cannot lose data. Drops are
	// reported as pending.
	Additive Mode = iota
	// Destructive also schedules drops.
	Destructive
)

func (m Mode) String() string {
	if m == Destructive {
		return "destructive"
	}
	return "additive"
}

// Options tune a planning run.
type Options struct {
	Mode Mode
	// Renames maps table -> live column -> declared field. Without a hint a
	// renamed field plans as an added column plus a pending drop.
	Renames map[string]map[string]string
	// DropUnknownTables plans drops for live tables that are not declared.
	DropUnknownTables bool
	// IgnoreTables are live tables the planner never touches.
	IgnoreTables []string
}

// Planner builds plans for one dialect.
type Planner struct {
	dialect sqlgen.Dialect
	in      introspect.Introspector
}

// New returns a planner reading the live schema through in.
func New(d sqlgen.Dialect, in introspect.Introspector) *Planner {
	return &Planner{dialect: d, in: in}
}

// Plan diffs the finalized registry against the live schema.
func (p *Planner) Plan(ctx context.Context, reg *schema.Registry, opts Options) (*plan.Plan, error) {
	if !reg.Finalized() {
		return nil, errors.New("planner: registry is not finalized")
	}
	names, err := p.in.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	ignored := func(name string) bool {
		return strings.EqualFold(name, history.TableName) || slices.Contains(opts.IgnoreTables, name)
	}
	live := make(map[string]bool, len(names))
	for _, name := range names {
		if !ignored(name) {
			live[name] = true
		}
	}

	b := &builder{dialect: p.dialect, plan: &plan.Plan{Dialect: p.dialect.Name()}, opts: opts}

	var missing []*schema.Table
	for _, t := range reg.Tables() {
		if !live[t.Name()] {
			missing = append(missing, t)
			continue
		}
		desc, err := p.in.DescribeTable(ctx, t.Name())
		if err != nil {
			return nil, err
		}
		if err := b.diffTable(t, desc); err != nil {
			return nil, err
		}
		delete(live, t.Name())
	}
	if err := b.createTables(missing); err != nil {
		return nil, err
	}

	if opts.DropUnknownTables {
		unknown := make([]string, 0, len(live))
		for name := range live {
			unknown = append(unknown, name)
		}
		slices.Sort(unknown)
		for _, name := range unknown {
			if err := b.add(plan.DropTable{Name: name}); err != nil {
				return nil, err
			}
		}
	}

	b.plan.Steps = plan.Order(b.plan.Steps)
	b.plan.Pending = plan.Order(b.plan.Pending)

	log := debug.Component("planner")
	for _, s := range b.plan.Pending {
		log.Info("destructive change pending", "step", s.String())
	}
	log.Debug("plan built", "dialect", p.dialect.Name(), "steps", len(b.plan.Steps), "pending", len(b.plan.Pending))
	return b.plan, nil
}

// builder accumulates the steps of one plan.
type builder struct {
	dialect sqlgen.Dialect
	plan    *plan.Plan
	opts    Options
}

// add renders op and schedules it, or records it as pending when it is
// destructive and the mode is additive.
func (b *builder) add(op plan.Op) error {
	stmts, err := b.dialect.RenderAlter(op)
	if err != nil {
		return err
	}
	step := plan.NewStep(op, stmts, !b.dialect.TransactionalDDL())
	if step.Destructive && b.opts.Mode != Destructive {
		b.plan.Pending = append(b.plan.Pending, step)
		return nil
	}
	b.plan.Steps = append(b.plan.Steps, step)
	return nil
}

func (b *builder) warn(format string, args ...any) {
	b.plan.Warnings = append(b.plan.Warnings, fmt.Sprintf(format, args...))
}

// createTables creates missing tables in foreign key order. Keys that
// cannot be created inline become AddConstraint steps after every table.
func (b *builder) createTables(tables []*schema.Table) error {
	sorted, deferred := plan.SortTables(tables, b.dialect.SupportsForwardReferences())
	byTable := make(map[string][]string)
	for _, d := range deferred {
		byTable[d.Table] = append(byTable[d.Table], d.FK.Name)
	}
	for _, t := range sorted {
		if err := b.add(plan.CreateTable{Table: t, Deferred: byTable[t.Name()]}); err != nil {
			return err
		}
	}
	for _, d := range deferred {
		if err := b.add(plan.AddConstraint{Table: d.Table, FK: d.FK}); err != nil {
			return err
		}
	}
	return nil
}

// diffTable compares one declared table with its live description.
func (b *builder) diffTable(t *schema.Table, desc *introspect.TableDescription) error {
	hints := b.opts.Renames[t.Name()]
	if _, ok := b.dialect.TableRedefinition(); ok && b.typeChanged(t, desc, hints) {
		return b.redefineTable(t, desc, hints)
	}
	matched := make(map[string]bool, len(desc.Columns))
	added := make(map[string]bool)

	for _, f := range t.Fields() {
		col, renamed := liveColumn(t, desc, hints, f)
		if renamed {
			if err := b.add(plan.RenameColumn{Table: t.Name(), From: col.Name, To: f.Name()}); err != nil {
				return err
			}
		}
		if col == nil {
			if err := b.addColumn(t, f); err != nil {
				return err
			}
			added[f.Name()] = true
			continue
		}
		matched[col.Name] = true
		if b.dialect.TypesEquivalent(f, col.Type) {
			continue
		}
		if err := b.changeType(t, f, col, desc); err != nil {
			return err
		}
	}

	for _, col := range desc.Columns {
		if !matched[col.Name] {
			if err := b.add(plan.DropColumn{Table: t.Name(), Column: col.Name}); err != nil {
				return err
			}
		}
	}

	if err := b.diffIndexes(t, desc); err != nil {
		return err
	}
	return b.diffForeignKeys(t, desc, added)
}

// liveColumn returns the live column backing f. A rename hint is followed
// when f itself is not live; renamed reports that case.
func liveColumn(t *schema.Table, desc *introspect.TableDescription, hints map[string]string, f *schema.Field) (col *introspect.Column, renamed bool) {
	if col := desc.Column(f.Name()); col != nil {
		return col, false
	}
	if from, ok := renamedFrom(hints, f.Name()); ok && desc.Column(from) != nil && t.Field(from) == nil {
		return desc.Column(from), true
	}
	return nil, false
}

// typeChanged reports whether a declared field diverges from the type of
// its live column.
func (b *builder) typeChanged(t *schema.Table, desc *introspect.TableDescription, hints map[string]string) bool {
	for _, f := range t.Fields() {
		if col, _ := liveColumn(t, desc, hints, f); col != nil && !b.dialect.TypesEquivalent(f, col.Type) {
			return true
		}
	}
	return false
}

// redefineTable plans the rebuild of t. The rebuilt table holds exactly the
// declared columns, indexes and foreign keys, so no other column step is
// planned for it. Live indexes that are not declared are kept and planned
// as drops, as on any other table.
func (b *builder) redefineTable(t *schema.Table, desc *introspect.TableDescription, hints map[string]string) error {
	op := plan.RedefineTable{Table: t}
	matched := make(map[string]bool, len(desc.Columns))
	carried := make(map[string]string, len(desc.Columns))
	for _, f := range t.Fields() {
		col, _ := liveColumn(t, desc, hints, f)
		if col == nil {
			_, hasDefault := f.Default()
			if !f.Nullable() && !hasDefault && f.DefaultKeyword() == 0 {
				b.warn("%s.%s is NOT NULL without a default; added as nullable", t.Name(), f.Name())
				op.ForceNullable = append(op.ForceNullable, f.Name())
			}
			continue
		}
		matched[col.Name] = true
		carried[col.Name] = f.Name()
		c := plan.CopyColumn{From: col.Name, To: f.Name()}
		if !b.dialect.TypesEquivalent(f, col.Type) {
			if err := convertible(t, f, col, b.dialect.NormalizeType(col.Type)); err != nil {
				return err
			}
			c.Convert = true
		}
		op.Copy = append(op.Copy, c)
	}
	for _, col := range desc.Columns {
		if !matched[col.Name] {
			op.Dropped = append(op.Dropped, col.Name)
		}
	}

	declared := make(map[string]bool)
	for _, idx := range t.Indexes() {
		declared[idx.Name] = true
	}
	for _, idx := range desc.Indexes {
		if idx.Constraint || declared[idx.Name] {
			continue
		}
		fields := make([]string, 0, len(idx.Columns))
		for _, c := range idx.Columns {
			if to, ok := carried[c]; ok {
				fields = append(fields, to)
			}
		}
		if len(fields) != len(idx.Columns) {
			// Goes away with its dropped column.
			continue
		}
		op.Indexes = append(op.Indexes, schema.IndexInfo{Name: idx.Name, Fields: fields, Unique: idx.Unique})
	}

	if len(op.Dropped) > 0 && b.opts.Mode != Destructive {
		b.warn("table %s must be redefined but drops columns %s; the change is pending", t.Name(), strings.Join(op.Dropped, ", "))
	}
	if err := b.add(op); err != nil {
		return err
	}
	for _, idx := range op.Indexes {
		if err := b.add(plan.DropIndex{Table: t.Name(), Name: idx.Name}); err != nil {
			return err
		}
	}
	return nil
}

func renamedFrom(hints map[string]string, field string) (string, bool) {
	for from, to := range hints {
		if to == field {
			return from, true
		}
	}
	return "", false
}

func (b *builder) addColumn(t *schema.Table, f *schema.Field) error {
	_, hasDefault := f.Default()
	force := !f.Nullable() && !hasDefault && f.DefaultKeyword() == 0
	if force {
		b.warn("%s.%s is NOT NULL without a default; added as nullable", t.Name(), f.Name())
	}
	return b.add(plan.AddColumn{Table: t.Name(), Field: f, ForceNullable: force})
}

// convertible fails with a *dalerr.TypeMismatchError when the live type of
// col cannot be cast to the declared type of f.
func convertible(t *schema.Table, f *schema.Field, col *introspect.Column, normalized string) error {
	if types.ConvertibleFamily(nativeFamily(normalized), f.Type().Family()) {
		return nil
	}
	return &dalerr.TypeMismatchError{
		Table:    t.Name(),
		Column:   col.Name,
		Declared: f.Type().String(),
		Live:     col.Type,
	}
}

// changeType bridges a type divergence with an in-place ALTER where the
// dialect has one, or with a column conversion otherwise.
func (b *builder) changeType(t *schema.Table, f *schema.Field, col *introspect.Column, desc *introspect.TableDescription) error {
	if err := convertible(t, f, col, b.dialect.NormalizeType(col.Type)); err != nil {
		return err
	}
	if b.dialect.CanAlterColumnType() {
		return b.add(plan.AlterColumnType{Table: t.Name(), Field: f, From: col.Type})
	}
	op := plan.ConvertColumn{Table: t.Name(), Field: f, From: col.Type}
	for _, idx := range desc.Indexes {
		if idx.Constraint || !slices.Contains(idx.Columns, col.Name) {
			continue
		}
		fields := slices.Clone(idx.Columns)
		fields[slices.Index(fields, col.Name)] = f.Name()
		op.Indexes = append(op.Indexes, schema.IndexInfo{Name: idx.Name, Fields: fields, Unique: idx.Unique})
	}
	return b.add(op)
}

// diffIndexes matches indexes by name. Indexes backing constraints are
// managed with their constraint and never diffed.
func (b *builder) diffIndexes(t *schema.Table, desc *introspect.TableDescription) error {
	declared := make(map[string]bool)
	for _, idx := range t.Indexes() {
		declared[idx.Name] = true
		if desc.Index(idx.Name) == nil {
			if err := b.add(plan.AddIndex{Table: t.Name(), Index: idx}); err != nil {
				return err
			}
		}
	}
	for _, idx := range desc.Indexes {
		if idx.Constraint || declared[idx.Name] {
			continue
		}
		if err := b.add(plan.DropIndex{Table: t.Name(), Name: idx.Name}); err != nil {
			return err
		}
	}
	return nil
}

// diffForeignKeys matches foreign keys by columns and referenced table,
// since not every backend keeps constraint names.
func (b *builder) diffForeignKeys(t *schema.Table, desc *introspect.TableDescription, added map[string]bool) error {
	live := slices.Clone(desc.ForeignKeys)
	for _, fk := range t.ForeignKeys() {
		i := slices.IndexFunc(live, func(l introspect.ForeignKey) bool {
			return strings.EqualFold(l.RefTable, fk.RefTable) && slices.Equal(l.Columns, fk.Fields)
		})
		if i >= 0 {
			live = slices.Delete(live, i, i+1)
			continue
		}
		switch {
		case b.dialect.SupportsAddConstraint():
			if err := b.add(plan.AddConstraint{Table: t.Name(), FK: fk}); err != nil {
				return err
			}
		case len(fk.Fields) == 1 && added[fk.Fields[0]]:
			// Declared inline with the added column.
		default:
			b.warn("foreign key %s cannot be added to existing table %s on %s", fk.Name, t.Name(), b.dialect.Name())
		}
	}
	for _, l := range live {
		if l.Name == "" || !b.dialect.SupportsAddConstraint() {
			continue
		}
		if err := b.add(plan.DropConstraint{Table: t.Name(), Name: l.Name}); err != nil {
			return err
		}
	}
	return nil
}

var nativeFamilies = []struct {
	prefix string
	family types.Family
}{
	{"BOOL", types.FamilyBoolean},
	{"BIGINT", types.FamilyNumeric},
	{"BIGSERIAL", types.FamilyNumeric},
	{"BIT", types.FamilyBoolean},
	{"TINYINT(1)", types.FamilyBoolean},
	{"INT", types.FamilyNumeric},
	{"SMALLINT", types.FamilyNumeric},
	{"TINYINT", types.FamilyNumeric},
	{"MEDIUMINT", types.FamilyNumeric},
	{"SERIAL", types.FamilyNumeric},
	{"NUMBER", types.FamilyNumeric},
	{"NUMERIC", types.FamilyNumeric},
	{"DECIMAL", types.FamilyNumeric},
	{"DOUBLE", types.FamilyNumeric},
	{"BINARY_DOUBLE", types.FamilyNumeric},
	{"FLOAT", types.FamilyNumeric},
	{"REAL", types.FamilyNumeric},
	{"VARCHAR", types.FamilyText},
	{"NVARCHAR", types.FamilyText},
	{"CHAR", types.FamilyText},
	{"NCHAR", types.FamilyText},
	{"TEXT", types.FamilyText},
	{"LONGTEXT", types.FamilyText},
	{"CLOB", types.FamilyText},
	{"JSON", types.FamilyText},
	{"BLOB SUB_TYPE 1", types.FamilyText},
	{"TIMESTAMP", types.FamilyTemporal},
	{"DATETIME", types.FamilyTemporal},
	{"DATE", types.FamilyTemporal},
	{"TIME", types.FamilyTemporal},
	{"BLOB", types.FamilyBinary},
	{"LONGBLOB", types.FamilyBinary},
	{"BYTEA", types.FamilyBinary},
	{"VARBINARY", types.FamilyBinary},
	{"BINARY", types.FamilyBinary},
}

// nativeFamily classifies a normalized native type. The longest matching
// prefix wins.
func nativeFamily(native string) types.Family {
	best, family := 0, types.FamilyNone
	for _, nf := range nativeFamilies {
		if strings.HasPrefix(native, nf.prefix) && len(nf.prefix) > best {
			best, family = len(nf.prefix), nf.family
		}
	}
	return family
}
