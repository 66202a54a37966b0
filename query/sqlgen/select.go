package sqlgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

// selectParts holds the rendered clauses of a select before pagination is
// applied.
type selectParts struct {
	distinct   bool
	fields     []string
	raw        []string
	labels     []string
	from       string
	where      string
	groupBy    string
	having     string
	orderExprs []string
	orderDirs  []string
	limit      int64
	hasLimit   bool
	offset     int64
}

func (p *selectParts) paged() bool { return p.hasLimit || p.offset > 0 }

func (p *selectParts) orderBy() string {
	if len(p.orderExprs) == 0 {
		return ""
	}
	items := make([]string, len(p.orderExprs))
	for i, e := range p.orderExprs {
		items[i] = e + " " + p.orderDirs[i]
	}
	return " ORDER BY " + strings.Join(items, ", ")
}

// body is the select without ORDER BY and pagination.
func (p *selectParts) body() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if p.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(p.fields, ", "))
	sb.WriteString(p.from)
	sb.WriteString(p.where)
	sb.WriteString(p.groupBy)
	sb.WriteString(p.having)
	return sb.String()
}

// Projection returns the projected expressions of sel. An empty projection
// selects every field of the source and joined tables.
func Projection(sel ast.Select) []ast.Expr {
	if fields := sel.Projection(); len(fields) > 0 {
		return fields
	}
	var out []ast.Expr
	tables := sel.ResolvedSources()
	for _, j := range sel.Joins() {
		tables = append(tables, j.Table)
	}
	for _, t := range tables {
		if st, ok := t.(*schema.Table); ok {
			out = append(out, st.Columns()...)
			continue
		}
		for _, k := range t.Key() {
			out = append(out, ast.Col(k))
		}
	}
	return out
}

// Label is the result column name of a projected expression.
func Label(e ast.Expr, i int) string {
	switch n := e.(type) {
	case ast.Column:
		return n.Field().Name()
	case ast.Alias:
		return n.Name()
	}
	return fmt.Sprintf("_c%d", i+1)
}

// orderFor returns the ordering of sel, adding a deterministic fallback
// when the select is paginated without one.
func orderFor(sel ast.Select, projection []ast.Expr) []ast.Order {
	if orders := sel.Ordering(); len(orders) > 0 || !sel.Paged() {
		return orders
	}

	var orders []ast.Order
	switch {
	case sel.IsDistinct():
		for _, e := range projection {
			if a, ok := e.(ast.Alias); ok {
				e = a.Expr()
			}
			orders = append(orders, ast.Asc(e))
		}
	case len(sel.Grouping()) > 0:
		for _, e := range sel.Grouping() {
			orders = append(orders, ast.Asc(e))
		}
	default:
		for _, e := range projection {
			if ast.ContainsAggregate(e) {
				// A single aggregate row has a stable order.
				return nil
			}
		}
		// Every source and joined table contributes its key, so each
		// combined row has exactly one position.
		var tables []ast.TableRef
		add := func(t ast.TableRef) {
			for _, seen := range tables {
				if ast.SameTable(seen, t) {
					return
				}
			}
			tables = append(tables, t)
		}
		for _, t := range sel.ResolvedSources() {
			add(t)
		}
		for _, j := range sel.Joins() {
			add(j.Table)
		}
		for _, t := range tables {
			for _, k := range t.Key() {
				orders = append(orders, ast.Asc(ast.Col(k)))
			}
		}
	}
	return orders
}

func (r *renderer) tableRef(t ast.TableRef) (string, error) {
	name, err := r.b.QuoteIdentifier(t.Name())
	if err != nil {
		return "", err
	}
	if t.Alias() == "" {
		return name, nil
	}
	alias, err := r.b.QuoteIdentifier(t.Alias())
	if err != nil {
		return "", err
	}
	return name + r.b.h.tableAlias + alias, nil
}

// fromWhere renders the FROM, JOIN and WHERE clauses into p.
func (r *renderer) fromWhere(sel ast.Select, sources []ast.TableRef, p *selectParts) error {
	// FROM and JOINs
	var from []string
	for _, t := range sources {
		s, err := r.tableRef(t)
		if err != nil {
			return err
		}
		from = append(from, s)
	}
	p.from = " FROM " + strings.Join(from, ", ")
	for _, j := range sel.Joins() {
		s, err := r.tableRef(j.Table)
		if err != nil {
			return err
		}
		on, err := r.expr(j.On)
		if err != nil {
			return err
		}
		kw := " JOIN "
		if j.Kind == ast.LeftJoin {
			kw = " LEFT JOIN "
		}
		p.from += kw + s + " ON " + on
	}

	// WHERE clause
	if q := sel.Filter(); q != nil {
		s, err := r.expr(q)
		if err != nil {
			return err
		}
		p.where = " WHERE " + s
	}
	return nil
}

// parts renders every clause of sel in textual order.
func (r *renderer) parts(sel ast.Select) (*selectParts, error) {
	p := &selectParts{distinct: sel.IsDistinct()}
	p.limit, p.hasLimit, p.offset = sel.Pagination()
	if p.hasLimit && p.limit < 0 || p.offset < 0 {
		return nil, fmt.Errorf("%s: negative limit or offset", r.b.h.name)
	}

	sources := sel.ResolvedSources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("%s: select references no table", r.b.h.name)
	}
	projection := Projection(sel)

	// SELECT columns
	for i, e := range projection {
		inner, alias := e, ""
		if a, ok := e.(ast.Alias); ok {
			inner, alias = a.Expr(), a.Name()
		}
		s, err := r.expr(inner)
		if err != nil {
			return nil, err
		}
		p.raw = append(p.raw, s)
		if alias != "" {
			q, err := r.b.QuoteIdentifier(alias)
			if err != nil {
				return nil, err
			}
			s += " AS " + q
		}
		p.fields = append(p.fields, s)
		p.labels = append(p.labels, Label(e, i))
	}

	if err := r.fromWhere(sel, sources, p); err != nil {
		return nil, err
	}

	// GROUP BY and HAVING
	if groups := sel.Grouping(); len(groups) > 0 {
		items, err := r.exprs(groups)
		if err != nil {
			return nil, err
		}
		p.groupBy = " GROUP BY " + strings.Join(items, ", ")
	}
	if h := sel.GroupFilter(); h != nil {
		s, err := r.expr(h)
		if err != nil {
			return nil, err
		}
		p.having = " HAVING " + s
	}

	// ORDER BY
	for _, o := range orderFor(sel, projection) {
		e := o.Expr
		if a, ok := e.(ast.Alias); ok {
			e = a.Expr()
		}
		s, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		p.orderExprs = append(p.orderExprs, s)
		p.orderDirs = append(p.orderDirs, dir)
	}
	return p, nil
}

func (r *renderer) selectSQL(sel ast.Select) (string, error) {
	// Firebird places its pagination arguments before the column list.
	var prefix string
	if r.b.h.paginate == firstSkip {
		limit, hasLimit, offset := sel.Pagination()
		if hasLimit {
			prefix += "FIRST (" + r.bind(limit) + ") "
		}
		if offset > 0 {
			prefix += "SKIP (" + r.bind(offset) + ") "
		}
	}

	p, err := r.parts(sel)
	if err != nil {
		return "", err
	}
	if prefix != "" {
		return strings.Replace(p.body(), "SELECT ", "SELECT "+prefix, 1) + p.orderBy(), nil
	}
	return r.paginate(p), nil
}

// RenderSelect renders a complete select.
func (b *base) RenderSelect(sel ast.Select) (Statement, error) {
	r := b.newRenderer()
	sql, err := r.selectSQL(sel)
	if err != nil {
		return Statement{}, err
	}
	return r.statement(sql), nil
}

// RenderCount renders a select returning the number of rows sel yields.
func (b *base) RenderCount(sel ast.Select) (Statement, error) {
	r := b.newRenderer()
	if !sel.IsDistinct() && len(sel.Grouping()) == 0 && !sel.Paged() {
		sources := sel.ResolvedSources()
		if len(sources) == 0 {
			return Statement{}, fmt.Errorf("%s: select references no table", b.h.name)
		}
		var p selectParts
		if err := r.fromWhere(sel, sources, &p); err != nil {
			return Statement{}, err
		}
		return r.statement("SELECT COUNT(*)" + p.from + p.where), nil
	}

	if !sel.Paged() {
		sel = sel.Unordered()
	}
	inner, err := r.selectSQL(sel)
	if err != nil {
		return Statement{}, err
	}
	return r.statement("SELECT COUNT(*) FROM (" + inner + ")" + b.h.tableAlias + b.quote("_count")), nil
}

// orderedKeys returns the keys of values in field declaration order.
func orderedKeys(t *schema.Table, values map[string]any) ([]*schema.Field, error) {
	fields := make([]*schema.Field, 0, len(values))
	for name := range values {
		f := t.Field(name)
		if f == nil {
			return nil, fmt.Errorf("table %s has no field %s", t.Name(), name)
		}
		fields = append(fields, f)
	}
	pos := make(map[string]int)
	for i, f := range t.Fields() {
		pos[f.Name()] = i
	}
	sort.Slice(fields, func(i, j int) bool { return pos[fields[i].Name()] < pos[fields[j].Name()] })
	return fields, nil
}

// value renders an assigned value: expressions are rendered, anything else
// is bound as a parameter of the field's type.
func (r *renderer) value(f *schema.Field, v any) (string, error) {
	switch x := v.(type) {
	case ast.Expr:
		return r.expr(x)
	case nil:
		return "NULL", nil
	}
	if f.Type().Kind() == types.List {
		enc, err := EncodeList(v)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name(), err)
		}
		return r.bind(enc), nil
	}
	return r.bind(v), nil
}

func (b *base) returnedKey(t *schema.Table) string {
	if id := t.Identity(); id != nil {
		return id.Name()
	}
	if pk := t.PrimaryKey(); len(pk) == 1 {
		return pk[0]
	}
	return ""
}

// RenderInsert renders an insert of one row. Generated keys are reported as
// IDRetrieval describes.
func (b *base) RenderInsert(t *schema.Table, values map[string]any) (Statement, error) {
	r := b.newRenderer()
	table, err := b.QuoteIdentifier(t.Name())
	if err != nil {
		return Statement{}, err
	}
	fields, err := orderedKeys(t, values)
	if err != nil {
		return Statement{}, err
	}
	key := b.returnedKey(t)
	var qkey string
	if key != "" {
		qkey = b.quote(key)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO " + table)
	if len(fields) == 0 {
		if b.h.insertDefaults != nil {
			sb.Reset()
			sb.WriteString(b.h.insertDefaults(table, qkey))
		} else {
			sb.WriteString(" DEFAULT VALUES")
		}
	} else {
		cols := make([]string, len(fields))
		vals := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = b.quote(f.Name())
			v, err := r.value(f, values[f.Name()])
			if err != nil {
				return Statement{}, err
			}
			vals[i] = v
		}
		sb.WriteString(" (" + strings.Join(cols, ", ") + ")")
		sb.WriteString(" VALUES (" + strings.Join(vals, ", ") + ")")
	}
	if b.h.returning != nil && qkey != "" {
		return Statement{SQL: b.h.returning(sb.String(), qkey, len(r.args)+1), Args: r.args}, nil
	}
	return r.statement(sb.String()), nil
}

// RenderUpdate renders an update of the rows matching where.
func (b *base) RenderUpdate(t *schema.Table, where ast.Expr, values map[string]any) (Statement, error) {
	r := b.newRenderer()
	table, err := b.QuoteIdentifier(t.Name())
	if err != nil {
		return Statement{}, err
	}
	fields, err := orderedKeys(t, values)
	if err != nil {
		return Statement{}, err
	}
	if len(fields) == 0 {
		return Statement{}, fmt.Errorf("update of %s sets no field", t.Name())
	}

	// SET clause
	sets := make([]string, len(fields))
	for i, f := range fields {
		v, err := r.value(f, values[f.Name()])
		if err != nil {
			return Statement{}, err
		}
		sets[i] = b.quote(f.Name()) + " = " + v
	}
	sql := "UPDATE " + table + " SET " + strings.Join(sets, ", ")

	// WHERE clause
	if where != nil {
		s, err := r.expr(where)
		if err != nil {
			return Statement{}, err
		}
		sql += " WHERE " + s
	}
	return r.statement(sql), nil
}

// RenderDelete renders a delete of the rows matching where. A nil filter is
// refused; delete everything with an always-true filter instead.
func (b *base) RenderDelete(t *schema.Table, where ast.Expr) (Statement, error) {
	if where == nil {
		return Statement{}, fmt.Errorf("delete from %s without a filter", t.Name())
	}
	r := b.newRenderer()
	table, err := b.QuoteIdentifier(t.Name())
	if err != nil {
		return Statement{}, err
	}
	s, err := r.expr(where)
	if err != nil {
		return Statement{}, err
	}
	return r.statement("DELETE FROM " + table + " WHERE " + s), nil
}
