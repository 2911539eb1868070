package planner

import (
	"fmt"
	"strings"

	"blazedb-go/Expr"
	"blazedb-go/operators"
)

// JoinPredicate is a WHERE atom that reads columns of more than one table.
type JoinPredicate struct {
	Expr   Expr.Expression
	Tables []string
}

func (jp JoinPredicate) String() string {
	return fmt.Sprintf("%s [%s]", jp.Expr, strings.Join(jp.Tables, ", "))
}

// ExtractConditions splits a conjunctive WHERE clause into one selection
// predicate per table and the list of join predicates, in clause order.
// Atoms that read no column at all go to the first FROM table.
func ExtractConditions(where Expr.Expression, from []string) (map[string]Expr.Expression, []JoinPredicate, error) {
	selections := make(map[string]Expr.Expression)
	var joins []JoinPredicate
	if where == nil {
		return selections, nil, nil
	}
	if len(from) == 0 {
		return nil, nil, operators.ErrUnsupported("WHERE without FROM")
	}
	for _, atom := range Expr.Conjuncts(where) {
		if err := checkAtom(atom); err != nil {
			return nil, nil, err
		}
		tables := Expr.ReferencedTables(atom)
		switch len(tables) {
		case 0:
			selections[from[0]] = Expr.Conjoin(selections[from[0]], atom)
		case 1:
			selections[tables[0]] = Expr.Conjoin(selections[tables[0]], atom)
		default:
			joins = append(joins, JoinPredicate{Expr: atom, Tables: tables})
		}
	}
	return selections, joins, nil
}

// atoms are comparisons between literals, columns and products of those
func checkAtom(atom Expr.Expression) error {
	b, ok := atom.(*Expr.BinaryExpr)
	if !ok || !b.Op.IsComparison() {
		if ok && b.Op == Expr.Or {
			return operators.ErrUnsupported(fmt.Sprintf("disjunction %s", atom))
		}
		if _, isNot := atom.(*Expr.NotExpr); isNot {
			return operators.ErrUnsupported(fmt.Sprintf("negation %s", atom))
		}
		return operators.ErrUnsupported(fmt.Sprintf("condition %s is not a comparison", atom))
	}
	for _, side := range []Expr.Expression{b.Left, b.Right} {
		if err := checkOperand(side); err != nil {
			return err
		}
	}
	return nil
}

func checkOperand(e Expr.Expression) error {
	switch n := e.(type) {
	case *Expr.LiteralResolve, *Expr.ColumnResolve:
		return nil
	case *Expr.BinaryExpr:
		if n.Op != Expr.Multiplication {
			return operators.ErrUnsupported(fmt.Sprintf("operator %s in %s", n.Op, n))
		}
		if err := checkOperand(n.Left); err != nil {
			return err
		}
		return checkOperand(n.Right)
	}
	return operators.ErrUnsupported(fmt.Sprintf("operand %s", e))
}

// IsJoinCondition reports whether pred reads exactly the two tables a and b.
func IsJoinCondition(pred Expr.Expression, a, b string) bool {
	tables := Expr.ReferencedTables(pred)
	if len(tables) != 2 || a == b {
		return false
	}
	return (tables[0] == a && tables[1] == b) || (tables[0] == b && tables[1] == a)
}

// joinable reports whether every table of jp is in joined, with next among them.
func (jp JoinPredicate) joinable(joined map[string]struct{}, next string) bool {
	hasNext := false
	for _, t := range jp.Tables {
		if t == next {
			hasNext = true
			continue
		}
		if _, ok := joined[t]; !ok {
			return false
		}
	}
	return hasNext
}
