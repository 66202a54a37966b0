package sqlgen

import (
	"regexp"
	"strings"

	"github.com/satishbabariya/godal/schema"
)

var (
	spaceRe        = regexp.MustCompile(`\s+`)
	parenSpaceRe   = regexp.MustCompile(`\s*([(),])\s*`)
	displayWidthRe = regexp.MustCompile(`^(TINYINT|SMALLINT|MEDIUMINT|INT|INTEGER|BIGINT)\(\d+\)`)
	fracRe         = regexp.MustCompile(`^(TIMESTAMP|DATETIME|TIME)\(\d+\)`)
)

// genericAliases are spellings shared by several catalogs.
var genericAliases = map[string]string{
	"CHARACTER VARYING":           "VARCHAR",
	"TIMESTAMP WITHOUT TIME ZONE": "TIMESTAMP",
	"TIME WITHOUT TIME ZONE":      "TIME",
	"INT4":                        "INTEGER",
	"INT8":                        "BIGINT",
	"INT2":                        "SMALLINT",
	"FLOAT8":                      "DOUBLE PRECISION",
	"BOOL":                        "BOOLEAN",
	"CHARACTER":                   "CHAR",
}

// NormalizeType brings a native type name into the canonical spelling used
// to compare declared and live columns.
func (b *base) NormalizeType(native string) string {
	s := strings.ToUpper(strings.TrimSpace(native))
	s = spaceRe.ReplaceAllString(s, " ")
	s = parenSpaceRe.ReplaceAllString(s, "$1")

	head, tail := s, ""
	if i := strings.IndexByte(s, '('); i >= 0 {
		head, tail = strings.TrimSpace(s[:i]), s[i:]
	}
	if alias, ok := genericAliases[head]; ok {
		head = alias
	}
	s = head + tail
	if s != "TINYINT(1)" {
		s = displayWidthRe.ReplaceAllString(s, "$1")
	}
	s = fracRe.ReplaceAllString(s, "$1")

	if alias, ok := b.h.typeAlias[s]; ok {
		return alias
	}
	return s
}

// integral reports whether a normalized type stores whole numbers.
func integral(norm string) bool {
	switch norm {
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "SERIAL", "BIGSERIAL":
		return true
	}
	return strings.HasPrefix(norm, "NUMBER(") && !strings.Contains(norm, ",")
}

// TypesEquivalent reports whether a live column of type native satisfies f.
// Identity fields accept any integer column.
func (b *base) TypesEquivalent(f *schema.Field, native string) bool {
	live := b.NormalizeType(native)
	if f.IsIdentity() {
		return integral(live)
	}
	want, err := b.h.columnType(f.Type())
	if err != nil {
		return false
	}
	return b.NormalizeType(want) == live
}
