package engine

import (
	"github.com/razeghi71/insightq/ast"
	"github.com/razeghi71/insightq/catalog"
	"github.com/razeghi71/insightq/parser"
	"github.com/razeghi71/insightq/schema"
	"github.com/razeghi71/insightq/table"
)

// Resolved is the outcome of a successful validation. Dataset is the
// snapshot the query was checked against.
type Resolved struct {
	DatasetID string
	Kind      schema.Kind
	Dataset   *catalog.Dataset
}

// Validate checks a parsed query against the catalog: every key must name a
// field of one single existing dataset, comparators must match field types,
// and COLUMNS/ORDER must be consistent with TRANSFORMATIONS. The first
// violation is returned, marked ast.ErrInvalidQuery.
func Validate(q *ast.Query, cat catalog.Catalog) (*Resolved, error) {
	if q == nil || q.Where == nil {
		return nil, ast.Invalidf("query has no WHERE")
	}
	v := &validator{cat: cat}

	if err := v.filter(q.Where); err != nil {
		return nil, err
	}

	groupKeys := map[string]bool{}
	applyKeys := map[string]bool{}
	if t := q.Transformations; t != nil {
		if len(t.Group) == 0 {
			return nil, ast.Invalidf("GROUP must not be empty")
		}
		for _, g := range t.Group {
			if _, err := v.field(g); err != nil {
				return nil, err
			}
			groupKeys[g] = true
		}
		for _, rule := range t.Apply {
			if applyKeys[rule.Name] {
				return nil, ast.Invalidf("duplicate apply key %q", rule.Name)
			}
			applyKeys[rule.Name] = true
			if err := v.applyTarget(rule); err != nil {
				return nil, err
			}
		}
	}

	if len(q.Options.Columns) == 0 {
		return nil, ast.Invalidf("COLUMNS must not be empty")
	}
	columns := make(map[string]bool, len(q.Options.Columns))
	for _, c := range q.Options.Columns {
		if q.Transformations != nil {
			if !groupKeys[c] && !applyKeys[c] {
				return nil, ast.Invalidf("column %q is neither a GROUP key nor an APPLY key", c)
			}
		} else if _, err := v.field(c); err != nil {
			return nil, err
		}
		columns[c] = true
	}

	if o := q.Options.Order; o != nil {
		if o.Dir != ast.Up && o.Dir != ast.Down {
			return nil, ast.Invalidf("ORDER dir must be UP or DOWN")
		}
		if len(o.Keys) == 0 {
			return nil, ast.Invalidf("ORDER keys must not be empty")
		}
		for _, k := range o.Keys {
			if !columns[k] {
				return nil, ast.Invalidf("ORDER key %q is not in COLUMNS", k)
			}
		}
	}

	if v.id == "" {
		return nil, ast.Invalidf("query references no dataset")
	}
	return &Resolved{DatasetID: v.id, Kind: v.schema.Kind, Dataset: v.ds}, nil
}

// validator pins the dataset on the first key it resolves.
type validator struct {
	cat    catalog.Catalog
	id     string
	ds     *catalog.Dataset
	schema *schema.Schema
}

func (v *validator) field(key string) (table.ValueType, error) {
	k, ok := schema.ParseKey(key)
	if !ok {
		return 0, ast.Invalidf("%q is not a valid dataset key", key)
	}
	if v.id == "" {
		ds, ok := v.cat.Lookup(k.DatasetID)
		if !ok {
			return 0, ast.Invalidf("dataset %q does not exist", k.DatasetID)
		}
		s, ok := schema.For(ds.Kind)
		if !ok {
			return 0, ast.Invalidf("dataset %q has unknown kind %q", k.DatasetID, ds.Kind)
		}
		v.id, v.ds, v.schema = k.DatasetID, ds, s
	} else if k.DatasetID != v.id {
		return 0, ast.Invalidf("query references more than one dataset (%q and %q)", v.id, k.DatasetID)
	}

	typ, ok := v.schema.FieldType(k.Field)
	if !ok {
		return 0, ast.Invalidf("%s datasets have no field %q", v.schema.Kind, k.Field)
	}
	return typ, nil
}

func (v *validator) typedField(key string, want table.ValueType, op string) error {
	typ, err := v.field(key)
	if err != nil {
		return err
	}
	if typ != want {
		return ast.Invalidf("%s needs a %s field, %q is %s", op, want, key, typ)
	}
	return nil
}

func (v *validator) filter(f ast.Filter) error {
	switch e := f.(type) {
	case *ast.MatchAll:
		return nil
	case *ast.LogicExpr:
		if e.Op != ast.And && e.Op != ast.Or {
			return ast.Invalidf("unknown logic operator %q", e.Op)
		}
		if len(e.Children) == 0 {
			return ast.Invalidf("%s must have at least one filter", e.Op)
		}
		for _, c := range e.Children {
			if _, empty := c.(*ast.MatchAll); empty {
				return ast.Invalidf("%s children must not be empty filters", e.Op)
			}
			if err := v.filter(c); err != nil {
				return err
			}
		}
		return nil
	case *ast.NotExpr:
		if e.Child == nil {
			return ast.Invalidf("NOT needs a filter")
		}
		if _, empty := e.Child.(*ast.MatchAll); empty {
			return ast.Invalidf("NOT must not wrap an empty filter")
		}
		return v.filter(e.Child)
	case *ast.CompareExpr:
		switch e.Op {
		case ast.GT, ast.LT, ast.EQ:
		default:
			return ast.Invalidf("unknown comparator %q", e.Op)
		}
		return v.typedField(e.Key, table.TypeNumber, string(e.Op))
	case *ast.IsExpr:
		if !parser.ValidPattern(e.Pattern) {
			return ast.Invalidf("IS pattern %q may only have '*' at the start or end", e.Pattern)
		}
		return v.typedField(e.Key, table.TypeText, "IS")
	default:
		return ast.Invalidf("unknown filter %T", f)
	}
}

func (v *validator) applyTarget(rule ast.ApplyRule) error {
	switch rule.Token {
	case ast.Max, ast.Min, ast.Avg, ast.Sum, ast.Count:
	default:
		return ast.Invalidf("unknown apply token %q", rule.Token)
	}
	if rule.Token.NumericOnly() {
		return v.typedField(rule.Key, table.TypeNumber, string(rule.Token))
	}
	_, err := v.field(rule.Key)
	return err
}
