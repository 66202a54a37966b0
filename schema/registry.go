// Package schema holds the declared table model: fields, tables and the
// registry that resolves references between them.
package schema

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/types"
)

// IdentityField is the name of the key field added to tables that declare
// neither an identity field nor a primary key.
const IdentityField = "id"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName checks the generic identifier grammar. Dialects apply their own
// length and reserved word rules on top of it.
func ValidName(name string) error {
	if !identRe.MatchString(name) {
		return &dalerr.IdentifierValidationError{Identifier: name, Reason: "must match [A-Za-z_][A-Za-z0-9_]*"}
	}
	return nil
}

// Registry maps table names to definitions. Tables are defined one by one
// and the registry is then finalized; after that it is read-only and its
// lookups take no lock.
type Registry struct {
	mu        sync.Mutex
	tables    []*Table
	byName    map[string]*Table
	finalized atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Table)}
}

// DefineTable validates and registers a table.
func (r *Registry) DefineTable(name string, items ...TableItem) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized.Load() {
		return nil, fmt.Errorf("define table %s: %w", name, dalerr.ErrRegistryFinalized)
	}
	if err := ValidName(name); err != nil {
		return nil, err
	}
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("table %s already defined", name)
	}

	t := &Table{name: name, byName: make(map[string]*Field), reg: r}
	var pk *PrimaryKeyDef
	for _, item := range items {
		switch it := item.(type) {
		case FieldDef:
			f, err := buildField(t, it)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", name, err)
			}
			if _, dup := t.byName[f.name]; dup {
				return nil, fmt.Errorf("table %s: duplicate field %s", name, f.name)
			}
			t.fields = append(t.fields, f)
			t.byName[f.name] = f
		case IndexDef:
			t.indexes = append(t.indexes, IndexInfo{Name: it.Name, Fields: it.Fields, Unique: it.Unique})
		case PrimaryKeyDef:
			if pk != nil {
				return nil, fmt.Errorf("table %s: primary key declared twice", name)
			}
			p := it
			pk = &p
		default:
			return nil, fmt.Errorf("table %s: unsupported item %T", name, item)
		}
	}

	if err := resolveKey(t, pk); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	// Indexes may only name existing fields.
	seen := make(map[string]bool)
	for _, idx := range t.indexes {
		if err := ValidName(idx.Name); err != nil {
			return nil, err
		}
		if seen[idx.Name] {
			return nil, fmt.Errorf("table %s: duplicate index %s", name, idx.Name)
		}
		seen[idx.Name] = true
		if len(idx.Fields) == 0 {
			return nil, fmt.Errorf("table %s: index %s has no fields", name, idx.Name)
		}
		for _, fn := range idx.Fields {
			if t.byName[fn] == nil {
				return nil, fmt.Errorf("table %s: index %s names unknown field %s", name, idx.Name, fn)
			}
		}
	}

	r.tables = append(r.tables, t)
	r.byName[name] = t
	return t, nil
}

// MustDefineTable is DefineTable that panics on error.
func (r *Registry) MustDefineTable(name string, items ...TableItem) *Table {
	t, err := r.DefineTable(name, items...)
	if err != nil {
		panic(err)
	}
	return t
}

func buildField(t *Table, def FieldDef) (*Field, error) {
	if err := ValidName(def.Name); err != nil {
		return nil, err
	}
	if !def.Type.IsValid() {
		return nil, fmt.Errorf("field %s: missing type", def.Name)
	}
	f := &Field{name: def.Name, typ: def.Type, table: t}
	for _, opt := range def.Opts {
		opt(f)
	}
	if f.onDelete != 0 && !f.typ.IsReference() {
		return nil, fmt.Errorf("field %s: ondelete applies to references only", f.name)
	}
	if f.onDelete == SetNull && f.notNull {
		return nil, fmt.Errorf("field %s: set null on a not null field", f.name)
	}
	if f.hasDefault && f.defFunc != nil {
		return nil, fmt.Errorf("field %s: both a default and a default generator", f.name)
	}
	if f.typ.IsIdentity() {
		f.notNull = true
	}
	return f, nil
}

// resolveKey fills t.pk from an explicit declaration, the identity field, or
// a newly prepended id field.
func resolveKey(t *Table, pk *PrimaryKeyDef) error {
	var identities []*Field
	for _, f := range t.fields {
		if f.typ.IsIdentity() {
			identities = append(identities, f)
		}
	}
	if len(identities) > 1 {
		return fmt.Errorf("more than one identity field")
	}

	switch {
	case pk != nil:
		if len(pk.Fields) == 0 {
			return fmt.Errorf("empty primary key")
		}
		for _, name := range pk.Fields {
			f := t.byName[name]
			if f == nil {
				return fmt.Errorf("primary key names unknown field %s", name)
			}
			f.notNull = true
		}
		if len(identities) == 1 && (len(pk.Fields) != 1 || pk.Fields[0] != identities[0].name) {
			return fmt.Errorf("identity field %s must be the whole primary key", identities[0].name)
		}
		t.pk = append([]string(nil), pk.Fields...)
	case len(identities) == 1:
		t.pk = []string{identities[0].name}
	default:
		if t.byName[IdentityField] != nil {
			return fmt.Errorf("field %s clashes with the implicit identity field", IdentityField)
		}
		id := &Field{name: IdentityField, typ: types.IdentityType(), notNull: true, table: t}
		t.fields = append([]*Field{id}, t.fields...)
		t.byName[IdentityField] = id
		t.pk = []string{IdentityField}
	}
	return nil
}

// Finalize resolves references and derives foreign keys. It is idempotent.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized.Load() {
		return nil
	}
	for _, t := range r.tables {
		var fks []ForeignKey
		for _, f := range t.fields {
			if !f.typ.IsReference() {
				continue
			}
			target := r.byName[f.typ.RefTable()]
			if target == nil {
				return &dalerr.UnresolvedReferenceError{Table: t.name, Field: f.name, Target: f.typ.RefTable()}
			}
			if len(target.pk) != 1 {
				return fmt.Errorf("field %s.%s: referenced table %s has a composite key", t.name, f.name, target.name)
			}
			fks = append(fks, ForeignKey{
				Name:      "fk_" + t.name + "_" + f.name,
				Fields:    []string{f.name},
				RefTable:  target.name,
				RefFields: []string{target.pk[0]},
				OnDelete:  f.OnDeletePolicy(),
			})
		}
		t.fks = fks
	}
	r.finalized.Store(true)
	return nil
}

// Finalized reports whether Finalize has succeeded.
func (r *Registry) Finalized() bool { return r.finalized.Load() }

// Tables returns the tables in definition order.
func (r *Registry) Tables() []*Table {
	if !r.finalized.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]*Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// Table looks a table up by name. It returns nil when there is none.
func (r *Registry) Table(name string) *Table {
	if !r.finalized.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return r.byName[name]
}
