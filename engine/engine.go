package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/razeghi71/insightq/ast"
	"github.com/razeghi71/insightq/catalog"
	"github.com/razeghi71/insightq/table"
)

// Run validates q against the catalog and evaluates it on the dataset the
// validator resolved. Errors are marked ast.ErrInvalidQuery or
// ast.ErrResultTooLarge.
func Run(q *ast.Query, cat catalog.Catalog) (*table.Table, *Resolved, error) {
	res, err := Validate(q, cat)
	if err != nil {
		return nil, nil, err
	}
	result, err := Execute(q, res.Dataset.Table)
	if err != nil {
		return nil, res, err
	}
	return result, res, nil
}

// Execute evaluates an already validated query on a dataset's table:
// filter, then group and aggregate, then project and order.
func Execute(q *ast.Query, input *table.Table) (*table.Table, error) {
	limit := ast.MaxResults
	if q.Transformations != nil {
		limit = 0
	}
	current, err := execFilter(q.Where, input, limit)
	if err != nil {
		return nil, err
	}

	if q.Transformations != nil {
		current, err = execGroup(q.Transformations, current)
		if err != nil {
			return nil, err
		}
	}

	current = execSelect(q.Options.Columns, current)

	if q.Options.Order != nil {
		current = execSort(q.Options.Order, current)
	}
	return current, nil
}

func colIndices(t *table.Table, cols []string) ([]int, error) {
	indices := make([]int, len(cols))
	for i, c := range cols {
		idx := t.ColIndex(c)
		if idx < 0 {
			return nil, errors.AssertionFailedf("column %q not found", c)
		}
		indices[i] = idx
	}
	return indices, nil
}

// groupKey encodes a tuple of values so that equal tuples, and only those,
// share a key.
func groupKey(vals []table.Value) string {
	var sb strings.Builder
	for _, v := range vals {
		if v.IsNumber() {
			n := v.Num
			if n == 0 {
				n = 0 // fold -0 into 0
			}
			sb.WriteByte('n')
			sb.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		} else {
			sb.WriteByte('s')
			sb.WriteString(strconv.Itoa(len(v.Str)))
			sb.WriteByte(':')
			sb.WriteString(v.Str)
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

// execGroup partitions rows by the GROUP keys in first-seen order and
// computes one output row per group: GROUP values then APPLY values. It
// fails as soon as the group count exceeds ast.MaxResults.
func execGroup(o *ast.Transformations, t *table.Table) (*table.Table, error) {
	groupIndices, err := colIndices(t, o.Group)
	if err != nil {
		return nil, err
	}
	applyCols := make([]string, len(o.Apply))
	for i, rule := range o.Apply {
		applyCols[i] = rule.Key
	}
	applyIndices, err := colIndices(t, applyCols)
	if err != nil {
		return nil, err
	}

	type groupEntry struct {
		key  []table.Value
		rows []table.Row
	}
	var groups []*groupEntry
	keyMap := make(map[string]*groupEntry)

	for _, row := range t.Rows {
		keyVals := make([]table.Value, len(groupIndices))
		for i, idx := range groupIndices {
			keyVals[i] = row.Values[idx]
		}
		keyStr := groupKey(keyVals)

		g, exists := keyMap[keyStr]
		if !exists {
			if len(groups) == ast.MaxResults {
				return nil, ast.TooLarge("group count", len(groups)+1)
			}
			g = &groupEntry{key: keyVals}
			groups = append(groups, g)
			keyMap[keyStr] = g
		}
		g.rows = append(g.rows, row)
	}

	resultCols := make([]string, 0, len(o.Group)+len(o.Apply))
	resultCols = append(resultCols, o.Group...)
	for _, rule := range o.Apply {
		resultCols = append(resultCols, rule.Name)
	}

	result := table.NewTable(resultCols)
	for _, g := range groups {
		vals := make([]table.Value, 0, len(resultCols))
		vals = append(vals, g.key...)
		for i, rule := range o.Apply {
			v, err := aggregate(rule.Token, g.rows, applyIndices[i])
			if err != nil {
				return nil, errors.Wrapf(err, "apply %q", rule.Name)
			}
			vals = append(vals, v)
		}
		result.AddRow(vals)
	}
	return result, nil
}

// execSelect projects the requested columns in order. Rows lacking any of
// them are dropped.
func execSelect(cols []string, t *table.Table) *table.Table {
	indices := make([]int, len(cols))
	for i, c := range cols {
		indices[i] = t.ColIndex(c)
	}

	result := table.NewTable(cols)
	for _, row := range t.Rows {
		vals := make([]table.Value, len(indices))
		complete := true
		for i, idx := range indices {
			if idx < 0 || idx >= len(row.Values) {
				complete = false
				break
			}
			vals[i] = row.Values[idx]
		}
		if complete {
			result.AddRow(vals)
		}
	}
	return result
}

// execSort orders rows by the ORDER keys, ascending, or descending for
// DOWN. Rows equal on every key keep their input order.
func execSort(o *ast.Order, t *table.Table) *table.Table {
	indices := make([]int, 0, len(o.Keys))
	for _, k := range o.Keys {
		if idx := t.ColIndex(k); idx >= 0 {
			indices = append(indices, idx)
		}
	}
	desc := o.Dir == ast.Down

	result := t.Clone()
	sort.SliceStable(result.Rows, func(i, j int) bool {
		for _, idx := range indices {
			cmp := table.Compare(result.Rows[i].Values[idx], result.Rows[j].Values[idx])
			if cmp != 0 {
				if desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	return result
}
