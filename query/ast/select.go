package ast

import "slices"

// JoinKind selects the join flavour.
type JoinKind int

const (
	InnerJoin JoinKind = iota + 1
	LeftJoin
)

// Join attaches a table with an ON predicate.
type Join struct {
	Kind  JoinKind
	Table TableRef
	On    Expr
}

// Select is an immutable select description. Every builder method returns a
// modified copy and leaves the receiver untouched.
type Select struct {
	from     []TableRef
	fields   []Expr
	where    Expr
	joins    []Join
	orders   []Order
	groups   []Expr
	having   Expr
	limit    int64
	hasLimit bool
	offset   int64
	distinct bool
}

// From starts a select over tables. With no tables, the FROM list is
// inferred from the fields and filter at compile time.
func From(tables ...TableRef) Select {
	return Select{from: slices.Clone(tables)}
}

func (s Select) clone() Select {
	s.from = slices.Clone(s.from)
	s.fields = slices.Clone(s.fields)
	s.joins = slices.Clone(s.joins)
	s.orders = slices.Clone(s.orders)
	s.groups = slices.Clone(s.groups)
	return s
}

// Where adds q to the filter with AND.
func (s Select) Where(q Expr) Select {
	c := s.clone()
	c.where = And(c.where, q)
	return c
}

// Columns replaces the projection. An empty projection selects every field
// of the source tables.
func (s Select) Columns(exprs ...Expr) Select {
	c := s.clone()
	c.fields = slices.Clone(exprs)
	return c
}

// Join adds an inner join.
func (s Select) Join(t TableRef, on Expr) Select {
	c := s.clone()
	c.joins = append(c.joins, Join{Kind: InnerJoin, Table: t, On: on})
	return c
}

// LeftJoin adds a left outer join.
func (s Select) LeftJoin(t TableRef, on Expr) Select {
	c := s.clone()
	c.joins = append(c.joins, Join{Kind: LeftJoin, Table: t, On: on})
	return c
}

// OrderBy appends ordering items.
func (s Select) OrderBy(orders ...Order) Select {
	c := s.clone()
	c.orders = append(c.orders, orders...)
	return c
}

// GroupBy appends grouping expressions.
func (s Select) GroupBy(exprs ...Expr) Select {
	c := s.clone()
	c.groups = append(c.groups, exprs...)
	return c
}

// Having adds q to the group filter with AND.
func (s Select) Having(q Expr) Select {
	c := s.clone()
	c.having = And(c.having, q)
	return c
}

// Limit caps the number of returned rows.
func (s Select) Limit(n int64) Select {
	c := s.clone()
	c.limit, c.hasLimit = n, true
	return c
}

// Offset skips the first n rows.
func (s Select) Offset(n int64) Select {
	c := s.clone()
	c.offset = n
	return c
}

// Page sets limit and offset together.
func (s Select) Page(limit, offset int64) Select {
	return s.Limit(limit).Offset(offset)
}

// Distinct removes duplicate rows.
func (s Select) Distinct() Select {
	c := s.clone()
	c.distinct = true
	return c
}

func (s Select) Sources() []TableRef { return slices.Clone(s.from) }
func (s Select) Projection() []Expr  { return slices.Clone(s.fields) }
func (s Select) Filter() Expr        { return s.where }
func (s Select) Joins() []Join       { return slices.Clone(s.joins) }
func (s Select) Ordering() []Order   { return slices.Clone(s.orders) }
func (s Select) Grouping() []Expr    { return slices.Clone(s.groups) }
func (s Select) GroupFilter() Expr   { return s.having }
func (s Select) IsDistinct() bool    { return s.distinct }

// Pagination returns the limit, whether one was set, and the offset.
func (s Select) Pagination() (limit int64, hasLimit bool, offset int64) {
	return s.limit, s.hasLimit, s.offset
}

// Paged reports whether the select restricts the row window.
func (s Select) Paged() bool { return s.hasLimit || s.offset > 0 }

// ResolvedSources returns the FROM list: the explicit sources, or the tables
// referenced by the projection, filter, ordering and grouping minus the
// joined tables.
func (s Select) ResolvedSources() []TableRef {
	if len(s.from) > 0 {
		return slices.Clone(s.from)
	}
	exprs := slices.Clone(s.fields)
	exprs = append(exprs, s.where, s.having)
	for _, o := range s.orders {
		exprs = append(exprs, o.Expr)
	}
	exprs = append(exprs, s.groups...)

	var out []TableRef
	for _, t := range Tables(exprs...) {
		joined := false
		for _, j := range s.joins {
			if SameTable(j.Table, t) {
				joined = true
				break
			}
		}
		if !joined {
			out = append(out, t)
		}
	}
	return out
}

// Unordered returns a copy without ORDER BY items.
func (s Select) Unordered() Select {
	c := s.clone()
	c.orders = nil
	return c
}
