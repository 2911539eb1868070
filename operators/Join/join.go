package join

import (
	"fmt"
	"io"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cockroachdb/errors"
)

var (
	ErrDuplicateJoinColumn = func(name string) error {
		return operators.ErrInvalidSchema(fmt.Sprintf("column %s appears on both sides of the join", name))
	}
)

var (
	_ = (operators.Operator)(&JoinExec{})
	_ = (operators.Node)(&JoinExec{})
)

// JoinExec is an inner nested loop join. For every left row the right child
// is read from the start, so the right child must support Reset. A nil
// predicate gives the cartesian product.
type JoinExec struct {
	left      operators.Operator
	right     operators.Operator
	predicate Expr.Expression
	schema    *arrow.Schema

	current operators.Tuple // left row being matched
	done    bool
}

// NewJoinExec pulls the first left row before returning.
func NewJoinExec(left, right operators.Operator, predicate Expr.Expression) (*JoinExec, error) {
	schema, err := joinSchemas(left.Schema(), right.Schema())
	if err != nil {
		return nil, err
	}
	if predicate != nil {
		if err := Expr.CheckPredicate(predicate, schema); err != nil {
			return nil, err
		}
	}
	j := &JoinExec{
		left:      left,
		right:     right,
		predicate: predicate,
		schema:    schema,
	}
	if err := j.advanceLeft(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *JoinExec) advanceLeft() error {
	row, err := j.left.Next()
	if err == io.EOF {
		j.done = true
		return nil
	}
	if err != nil {
		return err
	}
	j.current = row
	return nil
}

func (j *JoinExec) Next() (operators.Tuple, error) {
	for !j.done {
		r, err := j.right.Next()
		if err == io.EOF {
			if err := j.right.Reset(); err != nil {
				return operators.Tuple{}, err
			}
			if err := j.advanceLeft(); err != nil {
				return operators.Tuple{}, err
			}
			continue
		}
		if err != nil {
			return operators.Tuple{}, err
		}
		candidate := j.current.Concat(r)
		if j.predicate == nil {
			return candidate, nil
		}
		ok, err := Expr.EvalBool(j.predicate, candidate, j.schema)
		if err != nil {
			return operators.Tuple{}, err
		}
		if ok {
			return candidate, nil
		}
	}
	return operators.Tuple{}, io.EOF
}

// Reset rewinds both children and primes the first left row again.
func (j *JoinExec) Reset() error {
	if err := j.left.Reset(); err != nil {
		return err
	}
	if err := j.right.Reset(); err != nil {
		return err
	}
	j.done = false
	j.current = operators.Tuple{}
	return j.advanceLeft()
}

func (j *JoinExec) Schema() *arrow.Schema {
	return j.schema
}

func (j *JoinExec) Close() error {
	return errors.CombineErrors(j.left.Close(), j.right.Close())
}

func (j *JoinExec) Predicate() Expr.Expression {
	return j.predicate
}

func (j *JoinExec) Children() []operators.Operator {
	return []operators.Operator{j.left, j.right}
}

func (j *JoinExec) String() string {
	if j.predicate == nil {
		return "Join(cartesian)"
	}
	return fmt.Sprintf("Join(%s)", j.predicate)
}

// output schema is left ++ right, names must stay unique
func joinSchemas(left, right *arrow.Schema) (*arrow.Schema, error) {
	leftNames := make(map[string]bool, left.NumFields())
	for i := 0; i < left.NumFields(); i++ {
		leftNames[left.Field(i).Name] = true
	}
	for i := 0; i < right.NumFields(); i++ {
		if name := right.Field(i).Name; leftNames[name] {
			return nil, ErrDuplicateJoinColumn(name)
		}
	}
	return operators.ConcatSchemas(left, right), nil
}
