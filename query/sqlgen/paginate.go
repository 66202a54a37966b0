package sqlgen

import (
	"fmt"
	"strings"
)

// paginate assembles the final select text. Emulated strategies return the
// same rows as skipping offset rows and taking limit rows of the ordered
// result.
func (r *renderer) paginate(p *selectParts) string {
	if !p.paged() {
		return p.body() + p.orderBy()
	}
	switch r.b.h.paginate {
	case offsetFetch:
		return r.offsetFetch(p)
	case rowNumberWindow:
		return r.rowNumberWindow(p)
	case rowNumNesting:
		return r.rowNumNesting(p)
	}
	return r.limitOffset(p)
}

func (r *renderer) limitOffset(p *selectParts) string {
	sql := p.body() + p.orderBy()
	switch {
	case p.hasLimit:
		sql += " LIMIT " + r.bind(p.limit)
	case r.b.h.noLimit != "":
		sql += " LIMIT " + r.b.h.noLimit
	}
	if p.offset > 0 {
		sql += " OFFSET " + r.bind(p.offset)
	}
	return sql
}

func (r *renderer) offsetFetch(p *selectParts) string {
	sql := p.body() + p.orderBy()
	sql += " OFFSET " + r.bind(p.offset) + " ROWS"
	if p.hasLimit {
		sql += " FETCH NEXT " + r.bind(p.limit) + " ROWS ONLY"
	}
	return sql
}

// inner returns the select with every projected column renamed to a
// positional alias, plus the outer list restoring the original labels.
func (r *renderer) inner(p *selectParts, extra []string) (innerFields, outer []string) {
	for i, f := range p.raw {
		alias := r.b.quote(fmt.Sprintf("_c%d", i+1))
		innerFields = append(innerFields, f+" AS "+alias)
		outer = append(outer, alias+" AS "+r.b.quote(p.labels[i]))
	}
	for i, e := range extra {
		innerFields = append(innerFields, e+" AS "+r.b.quote(fmt.Sprintf("_o%d", i+1)))
	}
	return innerFields, outer
}

// rowNumberWindow numbers the ordered rows with ROW_NUMBER() and filters on
// the number. Order expressions are carried as extra columns so the window
// can sort on them.
func (r *renderer) rowNumberWindow(p *selectParts) string {
	innerFields, outer := r.inner(p, p.orderExprs)
	inner := *p
	inner.fields = innerFields

	over := make([]string, len(p.orderExprs))
	for i := range p.orderExprs {
		over[i] = r.b.quote(fmt.Sprintf("_o%d", i+1)) + " " + p.orderDirs[i]
	}
	rn := r.b.quote("_rn")

	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(outer, ", "))
	sb.WriteString(" FROM (SELECT " + r.b.quote("_q") + ".*, ROW_NUMBER() OVER (ORDER BY " + strings.Join(over, ", ") + ") AS " + rn)
	sb.WriteString(" FROM (" + inner.body() + ") AS " + r.b.quote("_q") + ") AS " + r.b.quote("_p"))
	sb.WriteString(" WHERE " + rn + " > " + r.bind(p.offset))
	if p.hasLimit {
		sb.WriteString(" AND " + rn + " <= " + r.bind(p.offset+p.limit))
	}
	sb.WriteString(" ORDER BY " + rn)
	return sb.String()
}

// rowNumNesting pages with ROWNUM over an ordered inline view.
func (r *renderer) rowNumNesting(p *selectParts) string {
	innerFields, outer := r.inner(p, nil)
	inner := *p
	inner.fields = innerFields
	rn := r.b.quote("_rn")
	q := r.b.quote("_q")

	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(outer, ", "))
	sb.WriteString(" FROM (SELECT " + q + ".*, ROWNUM AS " + rn + " FROM (" + inner.body() + inner.orderBy() + ") " + q)
	if p.hasLimit {
		sb.WriteString(" WHERE ROWNUM <= " + r.bind(p.offset+p.limit))
	}
	sb.WriteString(") " + r.b.quote("_p"))
	sb.WriteString(" WHERE " + rn + " > " + r.bind(p.offset))
	sb.WriteString(" ORDER BY " + rn)
	return sb.String()
}
