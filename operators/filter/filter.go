package filter

import (
	"fmt"
	"io"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&FilterExec{})
	_ = (operators.Node)(&FilterExec{})
)

// FilterExec is an operator that passes on only the child rows for which the predicate holds.
type FilterExec struct {
	input     operators.Operator
	schema    *arrow.Schema
	predicate Expr.Expression
	done      bool
}

func NewFilterExec(input operators.Operator, pred Expr.Expression) (*FilterExec, error) {
	if pred == nil {
		return nil, operators.ErrUnsupported("filter without a predicate")
	}
	if err := Expr.CheckPredicate(pred, input.Schema()); err != nil {
		return nil, err
	}
	return &FilterExec{
		input:     input,
		predicate: pred,
		schema:    input.Schema(),
	}, nil
}

func (f *FilterExec) Next() (operators.Tuple, error) {
	if f.done {
		return operators.Tuple{}, io.EOF
	}
	for {
		row, err := f.input.Next()
		if err == io.EOF {
			f.done = true
			return operators.Tuple{}, io.EOF
		}
		if err != nil {
			return operators.Tuple{}, err
		}
		keep, err := Expr.EvalBool(f.predicate, row, f.schema)
		if err != nil {
			return operators.Tuple{}, err
		}
		if keep {
			return row, nil
		}
	}
}

func (f *FilterExec) Reset() error {
	f.done = false
	return f.input.Reset()
}

func (f *FilterExec) Schema() *arrow.Schema {
	return f.schema
}

func (f *FilterExec) Close() error {
	return f.input.Close()
}

func (f *FilterExec) Predicate() Expr.Expression {
	return f.predicate
}

func (f *FilterExec) Children() []operators.Operator {
	return []operators.Operator{f.input}
}

func (f *FilterExec) String() string {
	return fmt.Sprintf("Select(%s)", f.predicate)
}
