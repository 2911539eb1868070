package aggr

import (
	"fmt"

	"blazedb-go/Expr"
	"blazedb-go/operators"
)

var (
	ErrUnsupportedAggregate = func(fn fmt.Stringer) error {
		return operators.ErrUnsupported(fmt.Sprintf("aggregate function %s", fn))
	}
)

// accumulator folds the values of one aggregate item over the rows of one group
type accumulator interface {
	Update(value int64)
	Finalize() int64
}

func newAccumulator(agg *Expr.AggregateExpr) (accumulator, error) {
	switch agg.Func {
	case Expr.Sum:
		return &SumAggrAccumulator{}, nil
	case Expr.Count:
		return &CountAggrAccumulator{}, nil
	case Expr.Min:
		return &MinAggrAccumulator{}, nil
	case Expr.Max:
		return &MaxAggrAccumulator{}, nil
	}
	return nil, ErrUnsupportedAggregate(agg.Func)
}

type SumAggrAccumulator struct {
	summation int64
}

// wraps around on overflow, same as the integer arithmetic in expressions
func (s *SumAggrAccumulator) Update(value int64) { s.summation += value }
func (s *SumAggrAccumulator) Finalize() int64    { return s.summation }

type CountAggrAccumulator struct {
	count int64
}

func (c *CountAggrAccumulator) Update(_ int64)  { c.count++ }
func (c *CountAggrAccumulator) Finalize() int64 { return c.count }

type MinAggrAccumulator struct {
	minV int64
	seen bool
}

func (m *MinAggrAccumulator) Update(value int64) {
	if !m.seen || value < m.minV {
		m.minV = value
		m.seen = true
	}
}
func (m *MinAggrAccumulator) Finalize() int64 { return m.minV }

type MaxAggrAccumulator struct {
	maxV int64
	seen bool
}

func (m *MaxAggrAccumulator) Update(value int64) {
	if !m.seen || value > m.maxV {
		m.maxV = value
		m.seen = true
	}
}
func (m *MaxAggrAccumulator) Finalize() int64 { return m.maxV }
