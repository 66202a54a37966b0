package ast

// Walk visits e and its descendants depth-first. When fn returns false the
// children of the current node are skipped. Sub-selects are visited as a
// single node; their own trees are not entered.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case Unary:
		Walk(n.operand, fn)
	case Binary:
		Walk(n.left, fn)
		Walk(n.right, fn)
	case Between:
		Walk(n.operand, fn)
		Walk(n.low, fn)
		Walk(n.high, fn)
	case In:
		Walk(n.operand, fn)
		for _, v := range n.values {
			Walk(v, fn)
		}
	case Func:
		for _, a := range n.args {
			Walk(a, fn)
		}
	case Aggregate:
		Walk(n.arg, fn)
	case Alias:
		Walk(n.expr, fn)
	case Case:
		Walk(n.cond, fn)
		Walk(n.then, fn)
		Walk(n.els, fn)
	}
}

// SameTable reports whether a and b denote the same table occurrence.
func SameTable(a, b TableRef) bool {
	return a.Name() == b.Name() && a.Alias() == b.Alias()
}

// Tables returns the tables referenced by columns in exprs, in order of
// first appearance.
func Tables(exprs ...Expr) []TableRef {
	var out []TableRef
	for _, e := range exprs {
		Walk(e, func(n Expr) bool {
			col, ok := n.(Column)
			if !ok {
				return true
			}
			t := col.field.Source()
			for _, seen := range out {
				if SameTable(seen, t) {
					return true
				}
			}
			out = append(out, t)
			return true
		})
	}
	return out
}

// ContainsAggregate reports whether e uses an aggregate function outside
// of sub-selects.
func ContainsAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(Aggregate); ok {
			found = true
		}
		return !found
	})
	return found
}
