package join

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cockroachdb/errors"
)

var (
	_ = (operators.Operator)(&HashJoinExec{})
	_ = (operators.Node)(&HashJoinExec{})
)

// JoinClause pairs the key expressions of an equi join, leftS[i] = rightS[i].
// Left keys only read the left schema and right keys only the right one.
type JoinClause struct {
	leftS  []Expr.Expression
	rightS []Expr.Expression
}

func NewJoinClause(leftS, rightS []Expr.Expression) JoinClause {
	return JoinClause{leftS: leftS, rightS: rightS}
}

func (jc JoinClause) Len() int { return len(jc.leftS) }

// Predicate turns the clause back into a conjunction of equalities.
func (jc JoinClause) Predicate() Expr.Expression {
	eqs := make([]Expr.Expression, len(jc.leftS))
	for i := range jc.leftS {
		eqs[i] = Expr.NewBinaryExpr(jc.leftS[i], Expr.Equal, jc.rightS[i])
	}
	return Expr.Conjoin(eqs...)
}

// SplitJoinClause pulls the equalities of pred whose sides each read only
// one input into a JoinClause. Everything else is returned as the residual.
// ok is false when pred holds no such equality.
func SplitJoinClause(pred Expr.Expression, left, right *arrow.Schema) (clause JoinClause, residual Expr.Expression, ok bool) {
	var rest []Expr.Expression
	for _, c := range Expr.Conjuncts(pred) {
		b, isBin := c.(*Expr.BinaryExpr)
		if !isBin || b.Op != Expr.Equal {
			rest = append(rest, c)
			continue
		}
		switch {
		case readsOnly(b.Left, left) && readsOnly(b.Right, right):
			clause.leftS = append(clause.leftS, b.Left)
			clause.rightS = append(clause.rightS, b.Right)
		case readsOnly(b.Left, right) && readsOnly(b.Right, left):
			clause.leftS = append(clause.leftS, b.Right)
			clause.rightS = append(clause.rightS, b.Left)
		default:
			rest = append(rest, c)
		}
	}
	return clause, Expr.Conjoin(rest...), clause.Len() > 0
}

// readsOnly reports whether e reads at least one column and all of them from schema.
func readsOnly(e Expr.Expression, schema *arrow.Schema) bool {
	cols := Expr.ReferencedColumns(e)
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if _, err := operators.IndexOf(schema, c.Name); err != nil {
			return false
		}
	}
	return true
}

// HashJoinExec is an inner equi join. The right input is read once into a
// hash table keyed on the clause, left rows then probe it in order. Rows
// come out in the same order a nested loop join over the same inputs gives.
type HashJoinExec struct {
	left     operators.Operator
	right    operators.Operator
	clause   JoinClause
	residual Expr.Expression
	schema   *arrow.Schema

	table   map[string][]operators.Tuple
	built   bool
	current operators.Tuple
	matches []operators.Tuple
	pos     int
	done    bool
}

func NewHashJoinExec(left, right operators.Operator, clause JoinClause, residual Expr.Expression) (*HashJoinExec, error) {
	if clause.Len() == 0 || len(clause.leftS) != len(clause.rightS) {
		return nil, operators.ErrInvalidSchema("hash join needs the same, non zero, number of left and right keys")
	}
	schema, err := joinSchemas(left.Schema(), right.Schema())
	if err != nil {
		return nil, err
	}
	for i := range clause.leftS {
		if err := checkKey(clause.leftS[i], left.Schema()); err != nil {
			return nil, err
		}
		if err := checkKey(clause.rightS[i], right.Schema()); err != nil {
			return nil, err
		}
	}
	if residual != nil {
		if err := Expr.CheckPredicate(residual, schema); err != nil {
			return nil, err
		}
	}
	return &HashJoinExec{
		left:     left,
		right:    right,
		clause:   clause,
		residual: residual,
		schema:   schema,
	}, nil
}

func checkKey(e Expr.Expression, schema *arrow.Schema) error {
	kind, err := Expr.TypeCheck(e, schema)
	if err != nil {
		return err
	}
	if kind != Expr.IntValue {
		return operators.ErrInvalidSchema(fmt.Sprintf("join key %s is not an integer expression", e))
	}
	return nil
}

func (hj *HashJoinExec) Next() (operators.Tuple, error) {
	if !hj.built {
		if err := hj.build(); err != nil {
			return operators.Tuple{}, err
		}
	}
	for !hj.done {
		if hj.pos < len(hj.matches) {
			candidate := hj.current.Concat(hj.matches[hj.pos])
			hj.pos++
			if hj.residual == nil {
				return candidate, nil
			}
			ok, err := Expr.EvalBool(hj.residual, candidate, hj.schema)
			if err != nil {
				return operators.Tuple{}, err
			}
			if ok {
				return candidate, nil
			}
			continue
		}
		row, err := hj.left.Next()
		if err == io.EOF {
			hj.done = true
			break
		}
		if err != nil {
			return operators.Tuple{}, err
		}
		key, err := buildRowKey(hj.clause.leftS, row, hj.left.Schema())
		if err != nil {
			return operators.Tuple{}, err
		}
		hj.current = row
		hj.matches = hj.table[key]
		hj.pos = 0
	}
	return operators.Tuple{}, io.EOF
}

// build drains the right input, keeping each bucket in input order
func (hj *HashJoinExec) build() error {
	hj.table = make(map[string][]operators.Tuple)
	_, err := operators.ForEach(hj.right, func(row operators.Tuple) error {
		key, err := buildRowKey(hj.clause.rightS, row, hj.right.Schema())
		if err != nil {
			return err
		}
		hj.table[key] = append(hj.table[key], row)
		return nil
	})
	if err != nil {
		return err
	}
	hj.built = true
	return nil
}

func buildRowKey(keys []Expr.Expression, row operators.Tuple, schema *arrow.Schema) (string, error) {
	var sb strings.Builder
	for i, k := range keys {
		v, err := Expr.EvalInt(k, row, schema)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	return sb.String(), nil
}

// Reset rewinds both children, the hash table is rebuilt on the next pull.
func (hj *HashJoinExec) Reset() error {
	if err := hj.left.Reset(); err != nil {
		return err
	}
	if err := hj.right.Reset(); err != nil {
		return err
	}
	hj.table = nil
	hj.built = false
	hj.current = operators.Tuple{}
	hj.matches = nil
	hj.pos = 0
	hj.done = false
	return nil
}

func (hj *HashJoinExec) Schema() *arrow.Schema {
	return hj.schema
}

func (hj *HashJoinExec) Close() error {
	hj.table = nil
	hj.matches = nil
	return errors.CombineErrors(hj.left.Close(), hj.right.Close())
}

// Predicate is the full join condition, keys first.
func (hj *HashJoinExec) Predicate() Expr.Expression {
	return Expr.Conjoin(hj.clause.Predicate(), hj.residual)
}

func (hj *HashJoinExec) Children() []operators.Operator {
	return []operators.Operator{hj.left, hj.right}
}

func (hj *HashJoinExec) String() string {
	return fmt.Sprintf("HashJoin(%s)", hj.Predicate())
}
