package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/godal/types"
)

// Document is the YAML form of a registry.
type Document struct {
	Tables []TableDoc `yaml:"tables"`
}

// TableDoc declares one table.
type TableDoc struct {
	Name       string     `yaml:"name"`
	Fields     []FieldDoc `yaml:"fields"`
	Indexes    []IndexDoc `yaml:"indexes,omitempty"`
	PrimaryKey []string   `yaml:"primary_key,omitempty"`
}

// FieldDoc declares one field. Type uses the textual type syntax, for
// example "string(64)" or "reference person".
type FieldDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	NotNull  bool   `yaml:"notnull,omitempty"`
	Unique   bool   `yaml:"unique,omitempty"`
	Default  any    `yaml:"default,omitempty"`
	Now      string `yaml:"default_expr,omitempty"`
	OnDelete string `yaml:"ondelete,omitempty"`
	Label    string `yaml:"label,omitempty"`
}

// IndexDoc declares one index.
type IndexDoc struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
	Unique bool     `yaml:"unique,omitempty"`
}

// LoadYAML reads a Document and returns the finalized registry it declares.
func LoadYAML(r io.Reader) (*Registry, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	return doc.Registry()
}

// Registry defines every table of the document and finalizes the result.
func (d Document) Registry() (*Registry, error) {
	reg := NewRegistry()
	for _, td := range d.Tables {
		items, err := td.items()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", td.Name, err)
		}
		if _, err := reg.DefineTable(td.Name, items...); err != nil {
			return nil, err
		}
	}
	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (td TableDoc) items() ([]TableItem, error) {
	var items []TableItem
	for _, fd := range td.Fields {
		t, err := types.Parse(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		var opts []Option
		if fd.NotNull {
			opts = append(opts, NotNull())
		}
		if fd.Unique {
			opts = append(opts, Unique())
		}
		if fd.Default != nil {
			opts = append(opts, Default(fd.Default))
		}
		if fd.Now != "" {
			k, ok := parseKeyword(fd.Now)
			if !ok {
				return nil, fmt.Errorf("field %s: unknown default_expr %q", fd.Name, fd.Now)
			}
			opts = append(opts, DefaultExpr(k))
		}
		if fd.OnDelete != "" {
			p, ok := ParseOnDelete(fd.OnDelete)
			if !ok {
				return nil, fmt.Errorf("field %s: unknown ondelete %q", fd.Name, fd.OnDelete)
			}
			opts = append(opts, OnDelete(p))
		}
		if fd.Label != "" {
			opts = append(opts, Label(fd.Label))
		}
		items = append(items, NewField(fd.Name, t, opts...))
	}
	for _, id := range td.Indexes {
		items = append(items, IndexDef{Name: id.Name, Fields: id.Fields, Unique: id.Unique})
	}
	if len(td.PrimaryKey) > 0 {
		items = append(items, PrimaryKey(td.PrimaryKey...))
	}
	return items, nil
}

func parseKeyword(s string) (DefaultKeyword, bool) {
	for _, k := range []DefaultKeyword{CurrentTimestamp, CurrentDate, CurrentTime} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
