package ast

// Filter is a node of the WHERE tree. The set of implementations is closed:
// MatchAll, LogicExpr, NotExpr, CompareExpr and IsExpr.
type Filter interface {
	filterNode()
}

// MatchAll is the empty filter {} and matches every record.
type MatchAll struct{}

func (f *MatchAll) filterNode() {}

// LogicOp is AND or OR.
type LogicOp string

const (
	And LogicOp = "AND"
	Or  LogicOp = "OR"
)

// LogicExpr combines one or more child filters.
type LogicExpr struct {
	Op       LogicOp
	Children []Filter
}

func (f *LogicExpr) filterNode() {}

// NotExpr negates its child.
type NotExpr struct {
	Child Filter
}

func (f *NotExpr) filterNode() {}

// CompareOp is one of the numeric comparators.
type CompareOp string

const (
	GT CompareOp = "GT"
	LT CompareOp = "LT"
	EQ CompareOp = "EQ"
)

// CompareExpr compares a numeric field against a literal.
type CompareExpr struct {
	Op    CompareOp
	Key   string
	Value float64
}

func (f *CompareExpr) filterNode() {}

// IsExpr matches a string field against a pattern that may carry a leading
// and/or trailing '*'.
type IsExpr struct {
	Key     string
	Pattern string
}

func (f *IsExpr) filterNode() {}

// Direction of a composite ORDER.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// Order is the ORDER option. The single-string form is stored as an
// ascending order over one key.
type Order struct {
	Dir  Direction
	Keys []string
}

// Options holds COLUMNS and ORDER.
type Options struct {
	Columns []string
	Order   *Order
}

// Token names an aggregate.
type Token string

const (
	Max   Token = "MAX"
	Min   Token = "MIN"
	Avg   Token = "AVG"
	Sum   Token = "SUM"
	Count Token = "COUNT"
)

// NumericOnly reports whether the aggregate requires a numeric field.
func (t Token) NumericOnly() bool {
	return t != Count
}

// ApplyRule is one entry of APPLY: {Name: {Token: Key}}.
type ApplyRule struct {
	Name  string
	Token Token
	Key   string
}

// Transformations holds GROUP and APPLY.
type Transformations struct {
	Group []string
	Apply []ApplyRule
}

// Query represents a full parsed query.
type Query struct {
	Where           Filter
	Options         Options
	Transformations *Transformations
}
