package Expr

import (
	"fmt"
	"strconv"
	"strings"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cockroachdb/errors"
)

var (
	ErrUnsupportedExpression = func(info string) error {
		return operators.ErrUnsupported(fmt.Sprintf("expression %s cannot be evaluated", info))
	}
	ErrWrongValueKind = func(expr Expression, want ValueKind) error {
		return errors.Mark(errors.Newf("expression %s does not evaluate to %s", expr, want), operators.ErrUnsupportedQuery)
	}
)

type binaryOperator int

const (
	// arithmetic
	Addition       binaryOperator = 1
	Subtraction    binaryOperator = 2
	Multiplication binaryOperator = 3
	Division       binaryOperator = 4
	// comparison
	Equal              binaryOperator = 6
	NotEqual           binaryOperator = 7
	LessThan           binaryOperator = 8
	LessThanOrEqual    binaryOperator = 9
	GreaterThan        binaryOperator = 10
	GreaterThanOrEqual binaryOperator = 11
	// logical
	And binaryOperator = 12
	Or  binaryOperator = 13
)

func (op binaryOperator) String() string {
	switch op {
	case Addition:
		return "+"
	case Subtraction:
		return "-"
	case Multiplication:
		return "*"
	case Division:
		return "/"
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case And:
		return "AND"
	case Or:
		return "OR"
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

func (op binaryOperator) IsComparison() bool {
	return op >= Equal && op <= GreaterThanOrEqual
}

type aggFunctions int

const (
	Sum   aggFunctions = 1
	Count aggFunctions = 2
	Min   aggFunctions = 4
	Max   aggFunctions = 5
)

func (f aggFunctions) String() string {
	switch f {
	case Sum:
		return "SUM"
	case Count:
		return "COUNT"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	}
	return "AGG(" + strconv.Itoa(int(f)) + ")"
}

var (
	_ = (Expression)(&ColumnResolve{})
	_ = (Expression)(&LiteralResolve{})
	_ = (Expression)(&BinaryExpr{})
	_ = (Expression)(&NotExpr{})
	_ = (Expression)(&AllColumns{})
	_ = (Expression)(&AggregateExpr{})
)

/*
EvalExpression(expr, row, schema):

	match expr:
	    Literal(x) -> int x
	    Column(name) -> int row[schema.indexOf(name)]
	    BinaryExpr(l * r) -> int eval l * eval r
	    BinaryExpr(l < r) -> bool, both sides integers
	    BinaryExpr(l AND r) -> bool, both sides booleans
*/
type Expression interface {
	// empty method, only for the sake of polymorphism
	ExprNode()
	fmt.Stringer
}

type ValueKind int

const (
	IntValue ValueKind = iota
	BoolValue
)

func (k ValueKind) String() string {
	if k == BoolValue {
		return "boolean"
	}
	return "integer"
}

// Value is the result of evaluating an expression against one row.
type Value struct {
	Kind ValueKind
	Int  int64
	Bool bool
}

func IntOf(v int64) Value { return Value{Kind: IntValue, Int: v} }

func BoolOf(v bool) Value { return Value{Kind: BoolValue, Bool: v} }

func (v Value) String() string {
	if v.Kind == BoolValue {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatInt(v.Int, 10)
}

func EvalExpression(expr Expression, row operators.Tuple, schema *arrow.Schema) (Value, error) {
	switch e := expr.(type) {
	case *LiteralResolve:
		return IntOf(e.Value), nil
	case *ColumnResolve:
		return EvalColumn(e, row, schema)
	case *BinaryExpr:
		return EvalBinary(e, row, schema)
	default:
		return Value{}, ErrUnsupportedExpression(expr.String())
	}
}

// EvalInt evaluates expr and requires an integer result.
func EvalInt(expr Expression, row operators.Tuple, schema *arrow.Schema) (int64, error) {
	v, err := EvalExpression(expr, row, schema)
	if err != nil {
		return 0, err
	}
	if v.Kind != IntValue {
		return 0, ErrWrongValueKind(expr, IntValue)
	}
	return v.Int, nil
}

// EvalBool evaluates expr and requires a boolean result.
func EvalBool(expr Expression, row operators.Tuple, schema *arrow.Schema) (bool, error) {
	v, err := EvalExpression(expr, row, schema)
	if err != nil {
		return false, err
	}
	if v.Kind != BoolValue {
		return false, ErrWrongValueKind(expr, BoolValue)
	}
	return v.Bool, nil
}

func NewExpressions(exprs ...Expression) []Expression {
	return exprs
}

// resolves a qualified column (Table.column) against the row's schema
// sql: select Student.A
type ColumnResolve struct {
	Name string
}

func NewColumnResolve(name string) *ColumnResolve {
	return &ColumnResolve{Name: name}
}

func EvalColumn(c *ColumnResolve, row operators.Tuple, schema *arrow.Schema) (Value, error) {
	idx, err := operators.IndexOf(schema, c.Name)
	if err != nil {
		return Value{}, err
	}
	if idx >= row.Len() {
		return Value{}, operators.ErrInvalidSchema(fmt.Sprintf("row of arity %d has no column %d (%s)", row.Len(), idx, c.Name))
	}
	return IntOf(row.Value(idx)), nil
}

// Table is the part of the name before the first dot, empty when unqualified.
func (c *ColumnResolve) Table() string {
	if i := strings.IndexByte(c.Name, '.'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

func (c *ColumnResolve) Column() string {
	if i := strings.IndexByte(c.Name, '.'); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

func (c *ColumnResolve) ExprNode() {}
func (c *ColumnResolve) String() string {
	return c.Name
}

// sql: where Student.A = 1
type LiteralResolve struct {
	Value int64
}

func NewLiteralResolve(v int64) *LiteralResolve {
	return &LiteralResolve{Value: v}
}

func (l *LiteralResolve) ExprNode() {}
func (l *LiteralResolve) String() string {
	return strconv.FormatInt(l.Value, 10)
}

type BinaryExpr struct {
	Left  Expression
	Op    binaryOperator
	Right Expression
}

func NewBinaryExpr(left Expression, op binaryOperator, right Expression) *BinaryExpr {
	return &BinaryExpr{
		Left:  left,
		Op:    op,
		Right: right,
	}
}

func EvalBinary(b *BinaryExpr, row operators.Tuple, schema *arrow.Schema) (Value, error) {
	switch {
	case b.Op == Multiplication:
		l, err := EvalInt(b.Left, row, schema)
		if err != nil {
			return Value{}, err
		}
		r, err := EvalInt(b.Right, row, schema)
		if err != nil {
			return Value{}, err
		}
		return IntOf(l * r), nil

	case b.Op.IsComparison():
		l, err := EvalInt(b.Left, row, schema)
		if err != nil {
			return Value{}, err
		}
		r, err := EvalInt(b.Right, row, schema)
		if err != nil {
			return Value{}, err
		}
		return BoolOf(compare(b.Op, l, r)), nil

	case b.Op == And:
		l, err := EvalBool(b.Left, row, schema)
		if err != nil {
			return Value{}, err
		}
		if !l {
			return BoolOf(false), nil
		}
		r, err := EvalBool(b.Right, row, schema)
		if err != nil {
			return Value{}, err
		}
		return BoolOf(r), nil
	}
	return Value{}, ErrUnsupportedExpression(b.String())
}

func compare(op binaryOperator, l, r int64) bool {
	switch op {
	case Equal:
		return l == r
	case NotEqual:
		return l != r
	case LessThan:
		return l < r
	case LessThanOrEqual:
		return l <= r
	case GreaterThan:
		return l > r
	case GreaterThanOrEqual:
		return l >= r
	}
	return false
}

func (b *BinaryExpr) ExprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", wrap(b.Left), b.Op, wrap(b.Right))
}

func wrap(e Expression) string {
	switch e.(type) {
	case *BinaryExpr, *NotExpr:
		return "(" + e.String() + ")"
	}
	return e.String()
}

// NotExpr is parsed but never evaluated, the planner rejects it.
type NotExpr struct {
	Expr Expression
}

func NewNotExpr(e Expression) *NotExpr {
	return &NotExpr{Expr: e}
}

func (n *NotExpr) ExprNode() {}
func (n *NotExpr) String() string {
	return "NOT " + wrap(n.Expr)
}

// sql: select *
type AllColumns struct{}

func (a *AllColumns) ExprNode() {}
func (a *AllColumns) String() string {
	return "*"
}

// AggregateExpr is a select list item such as SUM(Student.B * 2).
// Star is only meaningful for COUNT(*), in which case Arg is nil.
type AggregateExpr struct {
	Func aggFunctions
	Arg  Expression
	Star bool
}

func NewAggregateExpr(fn aggFunctions, arg Expression) *AggregateExpr {
	return &AggregateExpr{Func: fn, Arg: arg}
}

func NewCountStar() *AggregateExpr {
	return &AggregateExpr{Func: Count, Star: true}
}

func (a *AggregateExpr) ExprNode() {}

// String doubles as the output column name of the aggregate.
func (a *AggregateExpr) String() string {
	if a.Star || a.Arg == nil {
		return a.Func.String() + "(*)"
	}
	return a.Func.String() + "(" + a.Arg.String() + ")"
}

// ReferencedColumns walks expr and returns every column it reads, first
// occurrence order, without duplicates.
func ReferencedColumns(expr Expression) []*ColumnResolve {
	var out []*ColumnResolve
	seen := make(map[string]struct{})
	var walk func(e Expression)
	walk = func(e Expression) {
		switch n := e.(type) {
		case *ColumnResolve:
			if _, ok := seen[n.Name]; !ok {
				seen[n.Name] = struct{}{}
				out = append(out, n)
			}
		case *BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *NotExpr:
			walk(n.Expr)
		case *AggregateExpr:
			if n.Arg != nil {
				walk(n.Arg)
			}
		}
	}
	if expr != nil {
		walk(expr)
	}
	return out
}

// ReferencedTables returns the distinct table qualifiers used by expr.
func ReferencedTables(expr Expression) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range ReferencedColumns(expr) {
		t := c.Table()
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Conjuncts flattens a tree of ANDs into its atoms, left to right.
func Conjuncts(expr Expression) []Expression {
	if expr == nil {
		return nil
	}
	if b, ok := expr.(*BinaryExpr); ok && b.Op == And {
		return append(Conjuncts(b.Left), Conjuncts(b.Right)...)
	}
	return []Expression{expr}
}

// Conjoin ANDs the given atoms together, nil when there are none.
func Conjoin(exprs ...Expression) Expression {
	var out Expression
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = NewBinaryExpr(out, And, e)
	}
	return out
}

// TypeCheck resolves every column of expr against schema and returns the kind
// of value expr produces, without touching any row.
func TypeCheck(expr Expression, schema *arrow.Schema) (ValueKind, error) {
	switch e := expr.(type) {
	case *LiteralResolve:
		return IntValue, nil
	case *ColumnResolve:
		if _, err := operators.IndexOf(schema, e.Name); err != nil {
			return IntValue, err
		}
		return IntValue, nil
	case *BinaryExpr:
		var want ValueKind
		switch {
		case e.Op == Multiplication || e.Op.IsComparison():
			want = IntValue
		case e.Op == And:
			want = BoolValue
		default:
			return IntValue, ErrUnsupportedExpression(e.String())
		}
		for _, side := range []Expression{e.Left, e.Right} {
			got, err := TypeCheck(side, schema)
			if err != nil {
				return IntValue, err
			}
			if got != want {
				return IntValue, ErrWrongValueKind(side, want)
			}
		}
		if e.Op == Multiplication {
			return IntValue, nil
		}
		return BoolValue, nil
	}
	return IntValue, ErrUnsupportedExpression(expr.String())
}

// CheckPredicate fails unless pred is a boolean expression over schema.
func CheckPredicate(pred Expression, schema *arrow.Schema) error {
	kind, err := TypeCheck(pred, schema)
	if err != nil {
		return err
	}
	if kind != BoolValue {
		return ErrWrongValueKind(pred, BoolValue)
	}
	return nil
}
