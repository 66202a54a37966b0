package types

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// specLexer tokenises type specs such as "decimal(10,2)" or
// "list:reference tag".
var specLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[(),:]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

type rawSpec struct {
	List bool   `( @"list" ":" )?`
	Name string `@Ident`
	Args []int  `( "(" @Int ( "," @Int )* ")" )?`
	Ref  string `@Ident?`
}

var specParser = participle.MustBuild[rawSpec](
	participle.Lexer(specLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse converts a textual type spec into a Type.
//
// Accepted forms: "id", "big-id", "integer", "bigint", "double",
// "decimal(p,s)", "boolean", "string", "string(n)", "text", "date",
// "datetime", "time", "blob", "json", "reference <table>",
// "big-reference <table>", "list:<scalar>" and "list:reference <table>".
func Parse(spec string) (Type, error) {
	raw, err := specParser.ParseString("", strings.TrimSpace(spec))
	if err != nil {
		return Type{}, fmt.Errorf("invalid type spec %q: %w", spec, err)
	}

	kind, ok := lookupKind(raw.Name)
	if !ok || kind == List {
		return Type{}, fmt.Errorf("invalid type spec %q: unknown type %q", spec, raw.Name)
	}

	t, err := build(kind, raw.Args, raw.Ref)
	if err != nil {
		return Type{}, fmt.Errorf("invalid type spec %q: %w", spec, err)
	}

	if raw.List {
		if t.IsIdentity() {
			return Type{}, fmt.Errorf("invalid type spec %q: list of %s", spec, t.kind)
		}
		return ListOf(t), nil
	}
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for static
// declarations.
func MustParse(spec string) Type {
	t, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return t
}

func build(kind Kind, args []int, ref string) (Type, error) {
	needsRef := kind == Reference || kind == BigReference
	if needsRef && ref == "" {
		return Type{}, fmt.Errorf("%s requires a table name", kind)
	}
	if !needsRef && ref != "" {
		return Type{}, fmt.Errorf("unexpected %q after %s", ref, kind)
	}

	switch kind {
	case String:
		switch len(args) {
		case 0:
			return StringType(0), nil
		case 1:
			if args[0] <= 0 {
				return Type{}, fmt.Errorf("string length must be positive")
			}
			return StringType(args[0]), nil
		}
		return Type{}, fmt.Errorf("string takes one argument")
	case Decimal:
		if len(args) != 2 {
			return Type{}, fmt.Errorf("decimal takes precision and scale")
		}
		if args[0] <= 0 || args[1] > args[0] {
			return Type{}, fmt.Errorf("decimal(%d,%d) is out of range", args[0], args[1])
		}
		return DecimalType(args[0], args[1]), nil
	}

	if len(args) > 0 {
		return Type{}, fmt.Errorf("%s takes no arguments", kind)
	}
	switch kind {
	case Reference:
		return ReferenceType(ref), nil
	case BigReference:
		return BigReferenceType(ref), nil
	}
	return Type{kind: kind}, nil
}
