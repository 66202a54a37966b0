package ast

import (
	"time"

	"github.com/satishbabariya/godal/types"
)

// Col references field f.
func Col(f FieldRef) Column { return Column{field: f} }

// Value wraps v as a literal whose logical type is inferred from its Go type.
func Value(v any) Literal { return Literal{value: v, typ: inferType(v)} }

// TypedValue wraps v as a literal of logical type t.
func TypedValue(v any, t types.Type) Literal { return Literal{value: v, typ: t} }

// Null is the SQL NULL literal.
func Null() Literal { return Literal{} }

func inferType(v any) types.Type {
	switch v.(type) {
	case nil:
		return types.Type{}
	case bool:
		return types.BooleanType()
	case int, int8, int16, int32, uint8, uint16, uint32:
		return types.IntegerType()
	case int64, uint, uint64:
		return types.BigIntType()
	case float32, float64:
		return types.DoubleType()
	case string:
		return types.StringType(0)
	case []byte:
		return types.BinaryType()
	case time.Time:
		return types.DateTimeType()
	}
	return types.JSONType()
}

// operand turns v into an expression. Expressions pass through; anything
// else becomes a literal typed like the other side of the operation.
func operand(v any, like types.Type) Expr {
	switch x := v.(type) {
	case Expr:
		return x
	case Select:
		return SubSelect{sel: x}
	case nil:
		return Null()
	}
	if like.IsValid() {
		if like.IsIdentity() || like.IsReference() {
			return TypedValue(v, types.BigIntType())
		}
		return TypedValue(v, like)
	}
	return Value(v)
}

func compare(op BinaryOp, left Expr, right any) Binary {
	return Binary{op: op, left: left, right: operand(right, left.ResultType())}
}

// Eq compares left = right. A nil right operand compiles to IS NULL.
func Eq(left Expr, right any) Expr {
	if right == nil {
		return IsNull(left)
	}
	return compare(OpEq, left, right)
}

// Ne compares left <> right. A nil right operand compiles to IS NOT NULL.
func Ne(left Expr, right any) Expr {
	if right == nil {
		return NotNull(left)
	}
	return compare(OpNe, left, right)
}

func Lt(left Expr, right any) Expr { return compare(OpLt, left, right) }
func Le(left Expr, right any) Expr { return compare(OpLe, left, right) }
func Gt(left Expr, right any) Expr { return compare(OpGt, left, right) }
func Ge(left Expr, right any) Expr { return compare(OpGe, left, right) }

// Like matches a LIKE pattern supplied by the caller.
func Like(left Expr, pattern any) Expr { return compare(OpLike, left, pattern) }

// ILike matches a pattern case-insensitively.
func ILike(left Expr, pattern any) Expr { return compare(OpILike, left, pattern) }

// Regexp matches a regular expression.
func Regexp(left Expr, pattern any) Expr { return compare(OpRegexp, left, pattern) }

// StartsWith matches values beginning with prefix. Wildcards inside prefix
// are matched literally.
func StartsWith(left Expr, prefix any) Expr { return compare(OpStartsWith, left, prefix) }

// EndsWith matches values ending with suffix.
func EndsWith(left Expr, suffix any) Expr { return compare(OpEndsWith, left, suffix) }

// Contains matches values containing needle. For list fields it tests
// membership of an element.
func Contains(left Expr, needle any) Expr {
	right := operand(needle, types.Type{})
	if lt := left.ResultType(); lt.Kind() != types.List {
		right = operand(needle, left.ResultType())
	}
	return Binary{op: OpContains, left: left, right: right}
}

func arith(op BinaryOp, left Expr, right any) Expr {
	return Binary{op: op, left: left, right: operand(right, left.ResultType())}
}

func Add(left Expr, right any) Expr    { return arith(OpAdd, left, right) }
func Sub(left Expr, right any) Expr    { return arith(OpSub, left, right) }
func Mul(left Expr, right any) Expr    { return arith(OpMul, left, right) }
func Div(left Expr, right any) Expr    { return arith(OpDiv, left, right) }
func Mod(left Expr, right any) Expr    { return arith(OpMod, left, right) }
func Concat(left Expr, right any) Expr { return arith(OpConcat, left, right) }

// Neg negates a numeric expression.
func Neg(e Expr) Expr { return Unary{op: OpNeg, operand: e} }

// IsNull tests e IS NULL.
func IsNull(e Expr) Expr { return Unary{op: OpIsNull, operand: e} }

// NotNull tests e IS NOT NULL.
func NotNull(e Expr) Expr { return Unary{op: OpNotNull, operand: e} }

// Not negates a boolean expression. Not(nil) is nil.
func Not(e Expr) Expr {
	if e == nil {
		return nil
	}
	return Unary{op: OpNot, operand: e}
}

// And combines the non-nil operands with AND. It returns nil when no
// operand remains and the operand itself when only one does.
func And(operands ...Expr) Expr { return fold(OpAnd, operands) }

// Or combines the non-nil operands with OR.
func Or(operands ...Expr) Expr { return fold(OpOr, operands) }

func fold(op BinaryOp, operands []Expr) Expr {
	var acc Expr
	for _, e := range operands {
		if e == nil {
			continue
		}
		if acc == nil {
			acc = e
			continue
		}
		acc = Binary{op: op, left: acc, right: e}
	}
	return acc
}

// Range tests low <= e <= high.
func Range(e Expr, low, high any) Expr {
	return Between{operand: e, low: operand(low, e.ResultType()), high: operand(high, e.ResultType())}
}

// Member tests e against a list of values, or against a sub-select when the
// only value is a Select.
func Member(e Expr, values ...any) Expr { return member(e, false, values) }

// NotMember is the negation of Member.
func NotMember(e Expr, values ...any) Expr { return member(e, true, values) }

func member(e Expr, negated bool, values []any) Expr {
	if len(values) == 1 {
		switch v := values[0].(type) {
		case Select:
			return In{operand: e, sub: &v, negated: negated}
		case SubSelect:
			sel := v.sel
			return In{operand: e, sub: &sel, negated: negated}
		}
	}
	exprs := make([]Expr, 0, len(values))
	for _, v := range values {
		exprs = append(exprs, operand(v, e.ResultType()))
	}
	return In{operand: e, values: exprs, negated: negated}
}

func call(name FuncName, args ...Expr) Expr { return Func{name: name, args: args} }

func Lower(e Expr) Expr  { return call(FnLower, e) }
func Upper(e Expr) Expr  { return call(FnUpper, e) }
func Length(e Expr) Expr { return call(FnLength, e) }
func Abs(e Expr) Expr    { return call(FnAbs, e) }
func Year(e Expr) Expr   { return call(FnYear, e) }
func Month(e Expr) Expr  { return call(FnMonth, e) }
func Day(e Expr) Expr    { return call(FnDay, e) }
func Hour(e Expr) Expr   { return call(FnHour, e) }
func Minute(e Expr) Expr { return call(FnMinute, e) }
func Second(e Expr) Expr { return call(FnSecond, e) }

// Coalesce returns the first non-null of e and fallbacks.
func Coalesce(e Expr, fallbacks ...any) Expr {
	args := []Expr{e}
	for _, f := range fallbacks {
		args = append(args, operand(f, e.ResultType()))
	}
	return call(FnCoalesce, args...)
}

// Substring extracts length characters starting at the 1-based start.
func Substring(e Expr, start, length int) Expr {
	return call(FnSubstring, e, Value(start), Value(length))
}

// Replace substitutes every occurrence of old with repl.
func Replace(e Expr, old, repl any) Expr {
	return call(FnReplace, e, operand(old, types.TextType()), operand(repl, types.TextType()))
}

// Count counts non-null values of e.
func Count(e Expr) Aggregate { return Aggregate{fn: AggCount, arg: e} }

// CountDistinct counts distinct non-null values of e.
func CountDistinct(e Expr) Aggregate { return Aggregate{fn: AggCount, arg: e, distinct: true} }

// CountAll counts rows.
func CountAll() Aggregate { return Aggregate{fn: AggCount} }

func Sum(e Expr) Aggregate { return Aggregate{fn: AggSum, arg: e} }
func Avg(e Expr) Aggregate { return Aggregate{fn: AggAvg, arg: e} }
func Min(e Expr) Aggregate { return Aggregate{fn: AggMin, arg: e} }
func Max(e Expr) Aggregate { return Aggregate{fn: AggMax, arg: e} }

// As names a projected expression.
func As(e Expr, name string) Alias { return Alias{expr: e, name: name} }

// When builds CASE WHEN cond THEN then ELSE els END.
func When(cond Expr, then, els any) Expr {
	t := operand(then, types.Type{})
	return Case{cond: cond, then: t, els: operand(els, t.ResultType())}
}

// Scalar embeds a single-value select as an expression.
func Scalar(sel Select) SubSelect { return SubSelect{sel: sel} }
