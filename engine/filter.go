package engine

import (
	"strings"

	"github.com/razeghi71/insightq/ast"
	"github.com/razeghi71/insightq/table"
)

// EvalContext points filter evaluation at one row of a table.
type EvalContext struct {
	Table *table.Table
	Row   int
}

func (ctx *EvalContext) value(col string) (table.Value, bool) {
	return ctx.Table.Get(ctx.Row, col)
}

// Match evaluates a filter against one row. A key that is missing from the
// row or has the wrong type never matches.
func Match(f ast.Filter, ctx *EvalContext) bool {
	switch e := f.(type) {
	case *ast.MatchAll:
		return true
	case *ast.LogicExpr:
		if e.Op == ast.And {
			for _, c := range e.Children {
				if !Match(c, ctx) {
					return false
				}
			}
			return true
		}
		for _, c := range e.Children {
			if Match(c, ctx) {
				return true
			}
		}
		return false
	case *ast.NotExpr:
		return !Match(e.Child, ctx)
	case *ast.CompareExpr:
		v, ok := ctx.value(e.Key)
		if !ok {
			return false
		}
		n, ok := v.AsFloat()
		if !ok {
			return false
		}
		switch e.Op {
		case ast.GT:
			return n > e.Value
		case ast.LT:
			return n < e.Value
		case ast.EQ:
			return n == e.Value
		}
		return false
	case *ast.IsExpr:
		v, ok := ctx.value(e.Key)
		if !ok || v.IsNumber() {
			return false
		}
		return matchPattern(v.Str, e.Pattern)
	default:
		return false
	}
}

// matchPattern applies an IS pattern: a leading '*' means "ends with", a
// trailing '*' means "starts with", both mean "contains".
func matchPattern(s, pattern string) bool {
	inner := pattern
	leading := strings.HasPrefix(inner, "*")
	if leading {
		inner = inner[1:]
	}
	trailing := strings.HasSuffix(inner, "*")
	if trailing {
		inner = inner[:len(inner)-1]
	}

	switch {
	case leading && trailing:
		return strings.Contains(s, inner)
	case leading:
		return strings.HasSuffix(s, inner)
	case trailing:
		return strings.HasPrefix(s, inner)
	default:
		return s == inner
	}
}

// execFilter keeps the rows matching f, in input order. With limit > 0 it
// fails as soon as more than limit rows match.
func execFilter(f ast.Filter, t *table.Table, limit int) (*table.Table, error) {
	result := table.NewTable(t.Columns)
	if _, all := f.(*ast.MatchAll); all {
		if limit > 0 && len(t.Rows) > limit {
			return nil, ast.TooLarge("filtered row count", len(t.Rows))
		}
		result.Rows = t.Rows[:len(t.Rows):len(t.Rows)]
		return result, nil
	}
	for i := range t.Rows {
		ctx := &EvalContext{Table: t, Row: i}
		if !Match(f, ctx) {
			continue
		}
		result.AddRow(t.Rows[i].Values)
		if limit > 0 && len(result.Rows) > limit {
			return nil, ast.TooLarge("filtered row count", len(result.Rows))
		}
	}
	return result, nil
}
