package engine

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"

	"github.com/razeghi71/insightq/ast"
	"github.com/razeghi71/insightq/table"
)

// decimalCtx is shared by all aggregates. Operations never mutate it.
var decimalCtx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfUp
	return c
}()

var aggregates = map[ast.Token]func() aggregateImpl{
	ast.Avg:   newAvgAggregate,
	ast.Count: newCountAggregate,
	ast.Max:   newMaxAggregate,
	ast.Min:   newMinAggregate,
	ast.Sum:   newSumAggregate,
}

type aggregateImpl interface {
	add(table.Value) error
	result() (table.Value, error)
}

var _ aggregateImpl = &avgAggregate{}
var _ aggregateImpl = &countAggregate{}
var _ aggregateImpl = &maxAggregate{}
var _ aggregateImpl = &minAggregate{}
var _ aggregateImpl = &sumAggregate{}

// aggregate runs one APPLY rule over the values of column idx in rows.
func aggregate(token ast.Token, rows []table.Row, idx int) (table.Value, error) {
	newImpl, ok := aggregates[token]
	if !ok {
		return table.Value{}, errors.AssertionFailedf("unknown aggregate %q", token)
	}
	impl := newImpl()
	for _, r := range rows {
		if err := impl.add(r.Values[idx]); err != nil {
			return table.Value{}, errors.Wrapf(err, "%s", token)
		}
	}
	return impl.result()
}

// Round2 rounds x half-up (away from zero on a tie) to two decimals, working
// on the exact decimal form of x's shortest representation. 1.005 becomes
// 1.01 rather than the 1.00 that float arithmetic gives.
func Round2(x float64) (float64, error) {
	var d apd.Decimal
	if _, err := d.SetFloat64(x); err != nil {
		return 0, err
	}
	return roundDecimal(&d)
}

// roundDecimal quantizes d to two decimals. The context precision grows with
// the integer part so large sums still round instead of overflowing.
func roundDecimal(d *apd.Decimal) (float64, error) {
	if d.Exponent >= -2 {
		return d.Float64()
	}
	ctx := decimalCtx
	if digits := d.NumDigits() + int64(d.Exponent) + 3; digits > int64(ctx.Precision) {
		ctx = decimalCtx.WithPrecision(uint32(digits))
	}
	var r apd.Decimal
	if _, err := ctx.Quantize(&r, d, -2); err != nil {
		return 0, errors.Wrapf(err, "round %s", d)
	}
	return r.Float64()
}

func numeric(v table.Value) (float64, error) {
	f, ok := v.AsFloat()
	if !ok {
		return 0, errors.Newf("non-numeric value %q", v.AsString())
	}
	return f, nil
}

type avgAggregate struct {
	sumAggregate
	count int64
}

func newAvgAggregate() aggregateImpl {
	return &avgAggregate{}
}

func (a *avgAggregate) add(v table.Value) error {
	if err := a.sumAggregate.add(v); err != nil {
		return err
	}
	a.count++
	return nil
}

func (a *avgAggregate) result() (table.Value, error) {
	if a.count == 0 {
		return table.Number(0), nil
	}
	var avg apd.Decimal
	if _, err := decimalCtx.Quo(&avg, &a.sum, apd.New(a.count, 0)); err != nil {
		return table.Value{}, err
	}
	f, err := roundDecimal(&avg)
	if err != nil {
		return table.Value{}, err
	}
	return table.Number(f), nil
}

// countAggregate counts distinct values, not rows.
type countAggregate struct {
	seen map[table.Value]struct{}
}

func newCountAggregate() aggregateImpl {
	return &countAggregate{seen: make(map[table.Value]struct{})}
}

func (a *countAggregate) add(v table.Value) error {
	if v.Type == table.TypeNumber && v.Num == 0 {
		v.Num = 0 // fold -0 into 0
	}
	a.seen[v] = struct{}{}
	return nil
}

func (a *countAggregate) result() (table.Value, error) {
	return table.Number(float64(len(a.seen))), nil
}

type maxAggregate struct {
	max float64
	any bool
}

func newMaxAggregate() aggregateImpl {
	return &maxAggregate{}
}

func (a *maxAggregate) add(v table.Value) error {
	f, err := numeric(v)
	if err != nil {
		return err
	}
	if !a.any || f > a.max {
		a.max = f
	}
	a.any = true
	return nil
}

func (a *maxAggregate) result() (table.Value, error) {
	return table.Number(a.max), nil
}

type minAggregate struct {
	min float64
	any bool
}

func newMinAggregate() aggregateImpl {
	return &minAggregate{}
}

func (a *minAggregate) add(v table.Value) error {
	f, err := numeric(v)
	if err != nil {
		return err
	}
	if !a.any || f < a.min {
		a.min = f
	}
	a.any = true
	return nil
}

func (a *minAggregate) result() (table.Value, error) {
	return table.Number(a.min), nil
}

type sumAggregate struct {
	sum apd.Decimal
}

func newSumAggregate() aggregateImpl {
	return &sumAggregate{}
}

func (a *sumAggregate) add(v table.Value) error {
	f, err := numeric(v)
	if err != nil {
		return err
	}
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return err
	}
	_, err = decimalCtx.Add(&a.sum, &a.sum, &d)
	return err
}

func (a *sumAggregate) result() (table.Value, error) {
	f, err := roundDecimal(&a.sum)
	if err != nil {
		return table.Value{}, err
	}
	return table.Number(f), nil
}
