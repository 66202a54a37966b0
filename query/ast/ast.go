// Package ast provides the immutable logical representation of filters,
// projections and selects.
//
// Nodes carry only logical semantics (operator kind and operand types). They
// hold no SQL text; rendering is the job of a dialect compiler. Every
// constructor returns a new node and no node is ever mutated, so trees can be
// shared freely between goroutines and queries.
package ast

import (
	"slices"

	"github.com/satishbabariya/godal/types"
)

// TableRef is the view of a table the AST needs: its name, an optional
// alias and the fields forming its primary key.
type TableRef interface {
	Name() string
	Alias() string
	Key() []FieldRef
}

// FieldRef is the view of a field the AST needs.
type FieldRef interface {
	Name() string
	Type() types.Type
	Source() TableRef
}

// Expr is a node of an expression tree.
//
// This is a sealed interface: only types in this package implement it.
type Expr interface {
	exprNode()
	// ResultType is the logical type of the value the node evaluates to.
	ResultType() types.Type
}

// UnaryOp enumerates prefix and postfix operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota + 1
	OpNeg
	OpIsNull
	OpNotNull
)

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpEq BinaryOp = iota + 1
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
	OpILike
	OpRegexp
	OpStartsWith
	OpEndsWith
	OpContains
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
)

var binaryNames = map[BinaryOp]string{
	OpEq: "=", OpNe: "<>", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpLike: "LIKE", OpILike: "ILIKE", OpRegexp: "REGEXP",
	OpStartsWith: "STARTSWITH", OpEndsWith: "ENDSWITH", OpContains: "CONTAINS",
	OpAnd: "AND", OpOr: "OR",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpConcat: "||",
}

func (op BinaryOp) String() string { return binaryNames[op] }

// IsComparison reports whether op yields a boolean from two values.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpContains
}

// IsLogical reports whether op combines two booleans.
func (op BinaryOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// FuncName enumerates scalar functions.
type FuncName int

const (
	FnLower FuncName = iota + 1
	FnUpper
	FnLength
	FnCoalesce
	FnAbs
	FnYear
	FnMonth
	FnDay
	FnHour
	FnMinute
	FnSecond
	FnSubstring
	FnReplace
)

var funcNames = map[FuncName]string{
	FnLower: "lower", FnUpper: "upper", FnLength: "length", FnCoalesce: "coalesce",
	FnAbs: "abs", FnYear: "year", FnMonth: "month", FnDay: "day", FnHour: "hour",
	FnMinute: "minute", FnSecond: "second", FnSubstring: "substring", FnReplace: "replace",
}

func (f FuncName) String() string { return funcNames[f] }

// AggFunc enumerates aggregate functions.
type AggFunc int

const (
	AggCount AggFunc = iota + 1
	AggSum
	AggAvg
	AggMin
	AggMax
)

var aggNames = map[AggFunc]string{
	AggCount: "COUNT", AggSum: "SUM", AggAvg: "AVG", AggMin: "MIN", AggMax: "MAX",
}

func (a AggFunc) String() string { return aggNames[a] }

// Column references a field of a table.
type Column struct{ field FieldRef }

func (Column) exprNode()                {}
func (c Column) ResultType() types.Type { return c.field.Type() }
func (c Column) Field() FieldRef        { return c.field }

// Literal is a constant value. Compilers always bind it as a parameter.
type Literal struct {
	value any
	typ   types.Type
}

func (Literal) exprNode()                {}
func (l Literal) ResultType() types.Type { return l.typ }
func (l Literal) Value() any             { return l.value }

// IsNull reports whether the literal is SQL NULL.
func (l Literal) IsNull() bool { return l.value == nil }

// Unary applies a prefix or postfix operator.
type Unary struct {
	op      UnaryOp
	operand Expr
}

func (Unary) exprNode() {}
func (u Unary) ResultType() types.Type {
	if u.op == OpNeg {
		return u.operand.ResultType()
	}
	return types.BooleanType()
}
func (u Unary) Op() UnaryOp   { return u.op }
func (u Unary) Operand() Expr { return u.operand }

// Binary applies an infix operator.
type Binary struct {
	op          BinaryOp
	left, right Expr
}

func (Binary) exprNode() {}
func (b Binary) ResultType() types.Type {
	switch {
	case b.op.IsComparison(), b.op.IsLogical():
		return types.BooleanType()
	case b.op == OpConcat:
		return types.TextType()
	case b.op == OpDiv:
		return types.DoubleType()
	}
	return b.left.ResultType()
}
func (b Binary) Op() BinaryOp { return b.op }
func (b Binary) Left() Expr   { return b.left }
func (b Binary) Right() Expr  { return b.right }

// Between tests low <= operand <= high.
type Between struct {
	operand, low, high Expr
}

func (Between) exprNode()              {}
func (Between) ResultType() types.Type { return types.BooleanType() }
func (b Between) Operand() Expr        { return b.operand }
func (b Between) Low() Expr            { return b.low }
func (b Between) High() Expr           { return b.high }

// In tests membership in a value list or a sub-select.
type In struct {
	operand Expr
	values  []Expr
	sub     *Select
	negated bool
}

func (In) exprNode()              {}
func (In) ResultType() types.Type { return types.BooleanType() }
func (i In) Operand() Expr        { return i.operand }
func (i In) Values() []Expr       { return slices.Clone(i.values) }
func (i In) Negated() bool        { return i.negated }

// Subquery returns the sub-select when membership is tested against one.
func (i In) Subquery() (Select, bool) {
	if i.sub == nil {
		return Select{}, false
	}
	return *i.sub, true
}

// Func applies a scalar function.
type Func struct {
	name FuncName
	args []Expr
}

func (Func) exprNode() {}
func (f Func) ResultType() types.Type {
	switch f.name {
	case FnLength, FnYear, FnMonth, FnDay, FnHour, FnMinute, FnSecond:
		return types.IntegerType()
	case FnLower, FnUpper, FnSubstring, FnReplace:
		return types.TextType()
	}
	return f.args[0].ResultType()
}
func (f Func) Name() FuncName { return f.name }
func (f Func) Args() []Expr   { return slices.Clone(f.args) }

// Aggregate applies an aggregate function. A nil argument means COUNT(*).
type Aggregate struct {
	fn       AggFunc
	arg      Expr
	distinct bool
}

func (Aggregate) exprNode() {}
func (a Aggregate) ResultType() types.Type {
	switch a.fn {
	case AggCount:
		return types.BigIntType()
	case AggAvg:
		return types.DoubleType()
	}
	return a.arg.ResultType()
}
func (a Aggregate) Func() AggFunc  { return a.fn }
func (a Aggregate) Arg() Expr      { return a.arg }
func (a Aggregate) Distinct() bool { return a.distinct }

// SubSelect embeds a select that yields a single value.
type SubSelect struct{ sel Select }

func (SubSelect) exprNode() {}
func (s SubSelect) ResultType() types.Type {
	if fields := s.sel.fields; len(fields) == 1 {
		return fields[0].ResultType()
	}
	return types.Type{}
}
func (s SubSelect) Select() Select { return s.sel }

// Alias names a projected expression.
type Alias struct {
	expr Expr
	name string
}

func (Alias) exprNode()                {}
func (a Alias) ResultType() types.Type { return a.expr.ResultType() }
func (a Alias) Expr() Expr             { return a.expr }
func (a Alias) Name() string           { return a.name }

// Case evaluates to then when cond holds, otherwise to els.
type Case struct {
	cond, then, els Expr
}

func (Case) exprNode()                {}
func (c Case) ResultType() types.Type { return c.then.ResultType() }
func (c Case) Condition() Expr        { return c.cond }
func (c Case) Then() Expr             { return c.then }
func (c Case) Else() Expr             { return c.els }

// IsBoolean reports whether e can be used as a filter.
func IsBoolean(e Expr) bool {
	return e != nil && e.ResultType().Kind() == types.Boolean
}

// Order is an ORDER BY item.
type Order struct {
	Expr Expr
	Desc bool
}

// Asc orders by e ascending.
func Asc(e Expr) Order { return Order{Expr: e} }

// Desc orders by e descending.
func Desc(e Expr) Order { return Order{Expr: e, Desc: true} }
