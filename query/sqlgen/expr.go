package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/types"
)

// likeEscape is the ESCAPE character used for generated patterns.
const likeEscape = "!"

// renderer accumulates bound arguments while a statement is built. Its
// methods must be called in the textual order of the output so that
// positional placeholders line up with their arguments.
type renderer struct {
	b    *base
	args []any
}

func (b *base) newRenderer() *renderer { return &renderer{b: b} }

func (r *renderer) bind(v any) string {
	r.args = append(r.args, r.b.bindValue(v))
	return r.b.h.placeholder(len(r.args))
}

func (r *renderer) statement(sql string) Statement {
	return Statement{SQL: sql, Args: r.args}
}

func (r *renderer) unsupported(construct, reason string) error {
	return &dalerr.SyntaxTranslationError{Dialect: r.b.h.name, Construct: construct, Reason: reason}
}

// RenderExpression renders any expression.
func (b *base) RenderExpression(e ast.Expr) (Statement, error) {
	r := b.newRenderer()
	sql, err := r.expr(e)
	if err != nil {
		return Statement{}, err
	}
	return r.statement(sql), nil
}

// RenderQuery renders a boolean filter suitable for a WHERE clause.
func (b *base) RenderQuery(q ast.Expr) (Statement, error) {
	if q != nil && !ast.IsBoolean(q) {
		return Statement{}, fmt.Errorf("%s: query is not a boolean expression", b.h.name)
	}
	return b.RenderExpression(q)
}

// column renders a qualified column reference.
func (r *renderer) column(f ast.FieldRef) (string, error) {
	src := f.Source()
	table := src.Alias()
	if table == "" {
		table = src.Name()
	}
	qt, err := r.b.QuoteIdentifier(table)
	if err != nil {
		return "", err
	}
	qc, err := r.b.QuoteIdentifier(f.Name())
	if err != nil {
		return "", err
	}
	return qt + "." + qc, nil
}

func (r *renderer) exprs(es []ast.Expr) ([]string, error) {
	out := make([]string, 0, len(es))
	for _, e := range es {
		s, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *renderer) expr(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case nil:
		return "", fmt.Errorf("%s: nil expression", r.b.h.name)
	case ast.Column:
		return r.column(n.Field())
	case ast.Literal:
		if n.IsNull() {
			return "NULL", nil
		}
		v, err := r.literalValue(n)
		if err != nil {
			return "", err
		}
		return r.bind(v), nil
	case ast.Unary:
		return r.unary(n)
	case ast.Binary:
		return r.binary(n)
	case ast.Between:
		operand, err := r.expr(n.Operand())
		if err != nil {
			return "", err
		}
		low, err := r.expr(n.Low())
		if err != nil {
			return "", err
		}
		high, err := r.expr(n.High())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s BETWEEN %s AND %s)", operand, low, high), nil
	case ast.In:
		return r.in(n)
	case ast.Func:
		return r.function(n)
	case ast.Aggregate:
		return r.aggregate(n)
	case ast.SubSelect:
		sql, err := r.selectSQL(n.Select())
		if err != nil {
			return "", err
		}
		return "(" + sql + ")", nil
	case ast.Alias:
		inner, err := r.expr(n.Expr())
		if err != nil {
			return "", err
		}
		name, err := r.b.QuoteIdentifier(n.Name())
		if err != nil {
			return "", err
		}
		return inner + " AS " + name, nil
	case ast.Case:
		cond, err := r.expr(n.Condition())
		if err != nil {
			return "", err
		}
		then, err := r.expr(n.Then())
		if err != nil {
			return "", err
		}
		els, err := r.expr(n.Else())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cond, then, els), nil
	}
	return "", r.unsupported(fmt.Sprintf("%T", e), "unknown expression node")
}

// literalValue encodes list values into their stored text form.
func (r *renderer) literalValue(l ast.Literal) (any, error) {
	if l.ResultType().Kind() != types.List {
		return l.Value(), nil
	}
	return EncodeList(l.Value())
}

func (r *renderer) unary(u ast.Unary) (string, error) {
	operand, err := r.expr(u.Operand())
	if err != nil {
		return "", err
	}
	switch u.Op() {
	case ast.OpNot:
		return "(NOT " + operand + ")", nil
	case ast.OpNeg:
		return "(-" + operand + ")", nil
	case ast.OpIsNull:
		return "(" + operand + " IS NULL)", nil
	case ast.OpNotNull:
		return "(" + operand + " IS NOT NULL)", nil
	}
	return "", r.unsupported("unary operator", fmt.Sprint(u.Op()))
}

var plainOps = map[ast.BinaryOp]string{
	ast.OpEq: "=", ast.OpNe: "<>", ast.OpLt: "<", ast.OpLe: "<=", ast.OpGt: ">", ast.OpGe: ">=",
	ast.OpAnd: "AND", ast.OpOr: "OR",
	ast.OpAdd: "+", ast.OpSub: "-", ast.OpMul: "*", ast.OpDiv: "/", ast.OpMod: "%",
	ast.OpConcat: "||", ast.OpLike: "LIKE", ast.OpILike: "ILIKE", ast.OpRegexp: "REGEXP",
}

func (r *renderer) binary(n ast.Binary) (string, error) {
	switch n.Op() {
	case ast.OpStartsWith, ast.OpEndsWith, ast.OpContains:
		return r.pattern(n)
	}

	left, err := r.expr(n.Left())
	if err != nil {
		return "", err
	}
	right, err := r.expr(n.Right())
	if err != nil {
		return "", err
	}

	if r.b.h.binary != nil {
		sql, handled, err := r.b.h.binary(n.Op(), left, right)
		if err != nil {
			return "", err
		}
		if handled {
			return sql, nil
		}
	}

	switch n.Op() {
	case ast.OpILike:
		return fmt.Sprintf("(LOWER(%s) LIKE LOWER(%s))", left, right), nil
	case ast.OpRegexp:
		return "", r.unsupported("REGEXP", "no regular expression operator")
	}
	op, ok := plainOps[n.Op()]
	if !ok {
		return "", r.unsupported("binary operator", n.Op().String())
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

// pattern renders StartsWith, EndsWith and Contains as LIKE with an escaped
// bound pattern. Contains on a list field matches one encoded element.
func (r *renderer) pattern(n ast.Binary) (string, error) {
	left, err := r.expr(n.Left())
	if err != nil {
		return "", err
	}
	lit, ok := n.Right().(ast.Literal)
	if !ok || lit.IsNull() {
		// A non-literal operand is concatenated with wildcards in SQL.
		right, err := r.expr(n.Right())
		if err != nil {
			return "", err
		}
		var pat string
		switch n.Op() {
		case ast.OpStartsWith:
			pat = r.concat(right, "'%'")
		case ast.OpEndsWith:
			pat = r.concat("'%'", right)
		default:
			pat = r.concat(r.concat("'%'", right), "'%'")
		}
		return fmt.Sprintf("(%s LIKE %s)", left, pat), nil
	}

	text := fmt.Sprint(lit.Value())
	var pat string
	switch {
	case n.Op() == ast.OpContains && n.Left().ResultType().Kind() == types.List:
		pat = "%" + r.escapeLike(listSeparator+escapeListItem(text)+listSeparator) + "%"
	case n.Op() == ast.OpStartsWith:
		pat = r.escapeLike(text) + "%"
	case n.Op() == ast.OpEndsWith:
		pat = "%" + r.escapeLike(text)
	default:
		pat = "%" + r.escapeLike(text) + "%"
	}
	return fmt.Sprintf("(%s LIKE %s ESCAPE '%s')", left, r.bind(pat), likeEscape), nil
}

func (r *renderer) escapeLike(s string) string {
	var sb strings.Builder
	for _, c := range s {
		if strings.ContainsRune(r.b.h.likeSpecials, c) || string(c) == likeEscape {
			sb.WriteString(likeEscape)
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func (r *renderer) concat(left, right string) string {
	if r.b.h.binary != nil {
		if sql, handled, err := r.b.h.binary(ast.OpConcat, left, right); err == nil && handled {
			return sql
		}
	}
	return "(" + left + " || " + right + ")"
}

func (r *renderer) in(n ast.In) (string, error) {
	operand, err := r.expr(n.Operand())
	if err != nil {
		return "", err
	}
	kw := "IN"
	if n.Negated() {
		kw = "NOT IN"
	}
	if sub, ok := n.Subquery(); ok {
		sql, err := r.selectSQL(sub)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s (%s))", operand, kw, sql), nil
	}
	values := n.Values()
	if len(values) == 0 {
		// Membership in an empty list is false; its negation is true.
		if n.Negated() {
			return "(1=1)", nil
		}
		return "(1=0)", nil
	}
	items, err := r.exprs(values)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s (%s))", operand, kw, strings.Join(items, ", ")), nil
}

func (r *renderer) function(n ast.Func) (string, error) {
	args, err := r.exprs(n.Args())
	if err != nil {
		return "", err
	}
	if r.b.h.function != nil {
		if sql, ok := r.b.h.function(n.Name(), args); ok {
			return sql, nil
		}
	}
	switch n.Name() {
	case ast.FnLower, ast.FnUpper, ast.FnLength, ast.FnAbs, ast.FnCoalesce, ast.FnReplace:
		return strings.ToUpper(n.Name().String()) + "(" + strings.Join(args, ", ") + ")", nil
	case ast.FnYear, ast.FnMonth, ast.FnDay, ast.FnHour, ast.FnMinute, ast.FnSecond:
		return fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(n.Name().String()), args[0]), nil
	case ast.FnSubstring:
		return fmt.Sprintf("SUBSTR(%s, %s, %s)", args[0], args[1], args[2]), nil
	}
	return "", r.unsupported("function", n.Name().String())
}

func (r *renderer) aggregate(n ast.Aggregate) (string, error) {
	if n.Arg() == nil {
		return n.Func().String() + "(*)", nil
	}
	arg, err := r.expr(n.Arg())
	if err != nil {
		return "", err
	}
	if n.Distinct() {
		return n.Func().String() + "(DISTINCT " + arg + ")", nil
	}
	return n.Func().String() + "(" + arg + ")", nil
}
