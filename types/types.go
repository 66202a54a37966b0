// Package types defines the logical column types understood by the schema
// model and the dialect compilers.
package types

import (
	"fmt"
	"strings"
)

// Kind is the logical type tag of a field.
type Kind int

const (
	Invalid Kind = iota
	Identity
	BigIdentity
	Integer
	BigInt
	Double
	Decimal
	Boolean
	String
	Text
	Date
	DateTime
	Time
	Binary
	JSON
	Reference
	BigReference
	List
)

// DefaultStringLength is the length used for string fields declared without one.
const DefaultStringLength = 512

var kindNames = map[Kind]string{
	Identity:     "id",
	BigIdentity:  "big-id",
	Integer:      "integer",
	BigInt:       "bigint",
	Double:       "double",
	Decimal:      "decimal",
	Boolean:      "boolean",
	String:       "string",
	Text:         "text",
	Date:         "date",
	DateTime:     "datetime",
	Time:         "time",
	Binary:       "blob",
	JSON:         "json",
	Reference:    "reference",
	BigReference: "big-reference",
	List:         "list",
}

// String returns the spec keyword of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is an immutable logical type. The zero value is invalid.
type Type struct {
	kind      Kind
	length    int
	precision int
	scale     int
	ref       string
	elem      *Type
}

func (t Type) Kind() Kind       { return t.kind }
func (t Type) Length() int      { return t.length }
func (t Type) Precision() int   { return t.precision }
func (t Type) Scale() int       { return t.scale }
func (t Type) RefTable() string { return t.ref }
func (t Type) IsValid() bool    { return t.kind != Invalid }

// Elem returns the element type of a list type.
func (t Type) Elem() (Type, bool) {
	if t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// IsIdentity reports whether the type is an auto-generated primary key.
func (t Type) IsIdentity() bool {
	return t.kind == Identity || t.kind == BigIdentity
}

// IsReference reports whether the type points at another table.
func (t Type) IsReference() bool {
	return t.kind == Reference || t.kind == BigReference
}

// IsNumeric reports whether values of the type are numbers.
func (t Type) IsNumeric() bool {
	switch t.kind {
	case Identity, BigIdentity, Integer, BigInt, Double, Decimal, Reference, BigReference:
		return true
	}
	return false
}

// IsIntegral reports whether values of the type are whole numbers.
func (t Type) IsIntegral() bool {
	switch t.kind {
	case Identity, BigIdentity, Integer, BigInt, Reference, BigReference:
		return true
	}
	return false
}

// IsTextual reports whether values of the type are character data.
func (t Type) IsTextual() bool {
	return t.kind == String || t.kind == Text || t.kind == JSON
}

// IsTemporal reports whether values of the type are dates or times.
func (t Type) IsTemporal() bool {
	return t.kind == Date || t.kind == DateTime || t.kind == Time
}

// Equal compares two types structurally.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind || t.length != o.length || t.precision != o.precision ||
		t.scale != o.scale || t.ref != o.ref {
		return false
	}
	if (t.elem == nil) != (o.elem == nil) {
		return false
	}
	return t.elem == nil || t.elem.Equal(*o.elem)
}

// String renders the canonical spec of the type, accepted by Parse.
func (t Type) String() string {
	switch t.kind {
	case String:
		return fmt.Sprintf("string(%d)", t.length)
	case Decimal:
		return fmt.Sprintf("decimal(%d,%d)", t.precision, t.scale)
	case Reference, BigReference:
		return t.kind.String() + " " + t.ref
	case List:
		if t.elem == nil {
			return "list"
		}
		return "list:" + t.elem.String()
	}
	return t.kind.String()
}

func IdentityType() Type    { return Type{kind: Identity} }
func BigIdentityType() Type { return Type{kind: BigIdentity} }
func IntegerType() Type     { return Type{kind: Integer} }
func BigIntType() Type      { return Type{kind: BigInt} }
func DoubleType() Type      { return Type{kind: Double} }
func BooleanType() Type     { return Type{kind: Boolean} }
func TextType() Type        { return Type{kind: Text} }
func DateType() Type        { return Type{kind: Date} }
func DateTimeType() Type    { return Type{kind: DateTime} }
func TimeType() Type        { return Type{kind: Time} }
func BinaryType() Type      { return Type{kind: Binary} }
func JSONType() Type        { return Type{kind: JSON} }

// StringType returns a bounded string type. A non-positive length selects
// DefaultStringLength.
func StringType(length int) Type {
	if length <= 0 {
		length = DefaultStringLength
	}
	return Type{kind: String, length: length}
}

// DecimalType returns a fixed-point type.
func DecimalType(precision, scale int) Type {
	return Type{kind: Decimal, precision: precision, scale: scale}
}

// ReferenceType returns a type referencing the primary key of table.
func ReferenceType(table string) Type {
	return Type{kind: Reference, ref: table}
}

// BigReferenceType returns a 64-bit reference to table.
func BigReferenceType(table string) Type {
	return Type{kind: BigReference, ref: table}
}

// ListOf returns a list type whose elements have type elem. Lists of lists
// are not representable.
func ListOf(elem Type) Type {
	if elem.kind == List {
		elem = *elem.elem
	}
	e := elem
	return Type{kind: List, elem: &e}
}

// Family groups types whose values can be converted into each other with a
// plain CAST.
type Family int

const (
	FamilyNone Family = iota
	FamilyNumeric
	FamilyText
	FamilyTemporal
	FamilyBoolean
	FamilyBinary
)

// Family returns the conversion family of the type.
func (t Type) Family() Family {
	switch {
	case t.IsNumeric():
		return FamilyNumeric
	case t.IsTextual(), t.kind == List:
		return FamilyText
	case t.IsTemporal():
		return FamilyTemporal
	case t.kind == Boolean:
		return FamilyBoolean
	case t.kind == Binary:
		return FamilyBinary
	}
	return FamilyNone
}

// Convertible reports whether data of type from can be converted to type to
// without leaving its family. Text accepts everything except binary data.
func Convertible(from, to Type) bool { return ConvertibleFamily(from.Family(), to.Family()) }

// ConvertibleFamily is Convertible for values whose logical type is unknown,
// such as live columns known only by their native type.
func ConvertibleFamily(from, to Family) bool {
	if from == to {
		return from != FamilyNone
	}
	if to == FamilyText {
		return from != FamilyBinary && from != FamilyNone
	}
	return false
}

func lookupKind(name string) (Kind, bool) {
	name = strings.ToLower(name)
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	switch name {
	case "int":
		return Integer, true
	case "bool":
		return Boolean, true
	case "float":
		return Double, true
	case "timestamp":
		return DateTime, true
	case "binary", "bytes":
		return Binary, true
	}
	return Invalid, false
}
