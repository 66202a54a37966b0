package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/satishbabariya/godal/dalerr"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// commonReserved are words reserved by every supported backend.
var commonReserved = []string{
	"ADD", "ALL", "ALTER", "AND", "ANY", "AS", "ASC", "BETWEEN", "BY", "CASE",
	"CAST", "CHECK", "COLUMN", "CONSTRAINT", "CREATE", "CROSS", "CURRENT_DATE",
	"CURRENT_TIME", "CURRENT_TIMESTAMP", "CURRENT_USER", "DEFAULT", "DELETE",
	"DESC", "DISTINCT", "DROP", "ELSE", "END", "EXCEPT", "EXISTS", "FALSE",
	"FETCH", "FOR", "FOREIGN", "FROM", "FULL", "GRANT", "GROUP", "HAVING", "IN",
	"INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN", "LEFT", "LIKE",
	"LIMIT", "NATURAL", "NOT", "NULL", "OFFSET", "ON", "OR", "ORDER", "OUTER",
	"PRIMARY", "REFERENCES", "RIGHT", "SELECT", "SET", "TABLE", "THEN", "TO",
	"TRUE", "UNION", "UNIQUE", "UPDATE", "USER", "USING", "VALUES", "WHEN",
	"WHERE", "WITH",
}

// ValidateIdentifier rejects names that are malformed, too long for the
// backend or reserved. Rejected names are never corrected.
func (b *base) ValidateIdentifier(name string) error {
	if !identRe.MatchString(name) {
		return &dalerr.IdentifierValidationError{Dialect: b.h.name, Identifier: name,
			Reason: "must match [A-Za-z_][A-Za-z0-9_]*"}
	}
	if len(name) > b.h.maxIdent {
		return &dalerr.IdentifierValidationError{Dialect: b.h.name, Identifier: name,
			Reason: fmt.Sprintf("longer than %d characters", b.h.maxIdent)}
	}
	if b.reserved[strings.ToUpper(name)] {
		return &dalerr.IdentifierValidationError{Dialect: b.h.name, Identifier: name,
			Reason: "reserved word"}
	}
	return nil
}

// QuoteIdentifier validates name and returns its quoted form.
func (b *base) QuoteIdentifier(name string) (string, error) {
	if err := b.ValidateIdentifier(name); err != nil {
		return "", err
	}
	return b.quote(name), nil
}

// quote wraps a name known to be safe: a validated identifier or one of the
// renderer's own constant aliases.
func (b *base) quote(name string) string {
	return b.h.openQuote + name + b.h.closeQuote
}

// derivedName fits a generated constraint or index name into the backend
// limit by replacing its tail with a hash of the full name.
func (b *base) derivedName(name string) string {
	if len(name) <= b.h.maxIdent {
		return name
	}
	suffix := fmt.Sprintf("_%08x", uint32(xxh3.HashString(name)))
	return name[:b.h.maxIdent-len(suffix)] + suffix
}

// quoteDerived shortens and quotes a generated name.
func (b *base) quoteDerived(name string) (string, error) {
	return b.QuoteIdentifier(b.derivedName(name))
}
