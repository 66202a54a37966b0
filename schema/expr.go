package schema

import "github.com/satishbabariya/godal/query/ast"

// Col returns the column expression of the field.
func (f *Field) Col() ast.Column { return ast.Col(f) }

func (f *Field) Eq(v any) ast.Expr { return ast.Eq(f.Col(), v) }
func (f *Field) Ne(v any) ast.Expr { return ast.Ne(f.Col(), v) }
func (f *Field) Lt(v any) ast.Expr { return ast.Lt(f.Col(), v) }
func (f *Field) Le(v any) ast.Expr { return ast.Le(f.Col(), v) }
func (f *Field) Gt(v any) ast.Expr { return ast.Gt(f.Col(), v) }
func (f *Field) Ge(v any) ast.Expr { return ast.Ge(f.Col(), v) }

func (f *Field) Like(pattern string) ast.Expr   { return ast.Like(f.Col(), pattern) }
func (f *Field) ILike(pattern string) ast.Expr  { return ast.ILike(f.Col(), pattern) }
func (f *Field) Regexp(pattern string) ast.Expr { return ast.Regexp(f.Col(), pattern) }
func (f *Field) StartsWith(s string) ast.Expr   { return ast.StartsWith(f.Col(), s) }
func (f *Field) EndsWith(s string) ast.Expr     { return ast.EndsWith(f.Col(), s) }

// Contains matches a substring, or an element for list fields.
func (f *Field) Contains(v any) ast.Expr { return ast.Contains(f.Col(), v) }

// In tests membership in values. A single ast.Select argument is used as a
// sub-select.
func (f *Field) In(values ...any) ast.Expr    { return ast.Member(f.Col(), values...) }
func (f *Field) NotIn(values ...any) ast.Expr { return ast.NotMember(f.Col(), values...) }

func (f *Field) Between(low, high any) ast.Expr { return ast.Range(f.Col(), low, high) }
func (f *Field) IsNull() ast.Expr               { return ast.IsNull(f.Col()) }
func (f *Field) NotNull() ast.Expr              { return ast.NotNull(f.Col()) }

func (f *Field) Add(v any) ast.Expr { return ast.Add(f.Col(), v) }
func (f *Field) Sub(v any) ast.Expr { return ast.Sub(f.Col(), v) }
func (f *Field) Mul(v any) ast.Expr { return ast.Mul(f.Col(), v) }
func (f *Field) Div(v any) ast.Expr { return ast.Div(f.Col(), v) }

func (f *Field) Lower() ast.Expr { return ast.Lower(f.Col()) }
func (f *Field) Upper() ast.Expr { return ast.Upper(f.Col()) }

func (f *Field) Count() ast.Aggregate { return ast.Count(f.Col()) }
func (f *Field) Sum() ast.Aggregate   { return ast.Sum(f.Col()) }
func (f *Field) Avg() ast.Aggregate   { return ast.Avg(f.Col()) }
func (f *Field) Min() ast.Aggregate   { return ast.Min(f.Col()) }
func (f *Field) Max() ast.Aggregate   { return ast.Max(f.Col()) }

func (f *Field) Asc() ast.Order  { return ast.Asc(f.Col()) }
func (f *Field) Desc() ast.Order { return ast.Desc(f.Col()) }
