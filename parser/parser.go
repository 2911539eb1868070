package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/xwb1989/sqlparser"
)

var log = logrus.WithField("component", "parser")

var (
	ErrSyntax = func(err error) error {
		return errors.Mark(errors.Wrap(err, "failed to parse query"), operators.ErrUnsupportedQuery)
	}
	ErrUnsupportedSyntax = func(what string, node sqlparser.SQLNode) error {
		return operators.ErrUnsupported(fmt.Sprintf("%s: %s", what, sqlparser.String(node)))
	}
)

// Parse turns one SELECT statement into a Statement. Anything the engine
// cannot run is rejected here with an unsupported query error.
func Parse(sql string) (*Statement, error) {
	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, ErrSyntax(err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, operators.ErrUnsupported(fmt.Sprintf("only SELECT statements are supported, got %s", reflect.TypeOf(stmt)))
	}
	out, err := parseSelect(sel)
	if err != nil {
		return nil, err
	}
	log.WithField("statement", out.String()).Debug("parsed query")
	return out, nil
}

func parseSelect(sel *sqlparser.Select) (*Statement, error) {
	s := &Statement{Distinct: sel.Distinct != ""}

	var joinConds []Expr.Expression
	for _, te := range sel.From {
		tables, conds, err := parseFrom(te)
		if err != nil {
			return nil, err
		}
		s.From = append(s.From, tables...)
		joinConds = append(joinConds, conds...)
	}
	seen := make(map[string]struct{}, len(s.From))
	for _, t := range s.From {
		if _, ok := seen[t]; ok {
			return nil, operators.ErrUnsupported(fmt.Sprintf("table %s appears twice in FROM, aliases are not supported", t))
		}
		seen[t] = struct{}{}
	}

	var where Expr.Expression
	if sel.Where != nil {
		var err error
		if where, err = parseCondition(sel.Where.Expr, false); err != nil {
			return nil, err
		}
	}
	s.Where = Expr.Conjoin(append(joinConds, where)...)

	for _, item := range sel.SelectExprs {
		e, err := parseSelectItem(item)
		if err != nil {
			return nil, err
		}
		s.Select = append(s.Select, e)
	}
	if len(s.Select) > 1 {
		for _, e := range s.Select {
			if _, ok := e.(*Expr.AllColumns); ok {
				return nil, operators.ErrUnsupported("* mixed with other select items")
			}
		}
	}

	for _, g := range sel.GroupBy {
		col, err := parseColumn(g)
		if err != nil {
			return nil, err
		}
		s.GroupBy = append(s.GroupBy, col)
	}

	if sel.Having != nil {
		having, err := parseCondition(sel.Having.Expr, true)
		if err != nil {
			return nil, err
		}
		s.Having = having
	}

	for _, o := range sel.OrderBy {
		item, err := parseOrder(o)
		if err != nil {
			return nil, err
		}
		s.OrderBy = append(s.OrderBy, item)
	}

	if sel.Limit != nil {
		if sel.Limit.Offset != nil {
			return nil, ErrUnsupportedSyntax("LIMIT with OFFSET", sel.Limit)
		}
		n, err := parseInt(sel.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ErrUnsupportedSyntax("negative LIMIT", sel.Limit)
		}
		s.Limit = &n
	}
	return s, nil
}

// parseFrom flattens a FROM item into table names, left to right, plus the
// ON conditions of inner joins.
func parseFrom(te sqlparser.TableExpr) ([]string, []Expr.Expression, error) {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		name, ok := t.Expr.(sqlparser.TableName)
		if !ok {
			return nil, nil, ErrUnsupportedSyntax("subqueries are not supported", t)
		}
		if !t.As.IsEmpty() {
			return nil, nil, ErrUnsupportedSyntax("table aliases are not supported", t)
		}
		if !name.Qualifier.IsEmpty() {
			return nil, nil, ErrUnsupportedSyntax("database qualified tables are not supported", t)
		}
		return []string{name.Name.String()}, nil, nil
	case *sqlparser.ParenTableExpr:
		var tables []string
		var conds []Expr.Expression
		for _, e := range t.Exprs {
			ts, cs, err := parseFrom(e)
			if err != nil {
				return nil, nil, err
			}
			tables = append(tables, ts...)
			conds = append(conds, cs...)
		}
		return tables, conds, nil
	case *sqlparser.JoinTableExpr:
		if t.Join != sqlparser.JoinStr {
			return nil, nil, operators.ErrUnsupported(fmt.Sprintf("%s is not supported, only inner joins", t.Join))
		}
		if len(t.Condition.Using) > 0 {
			return nil, nil, ErrUnsupportedSyntax("JOIN ... USING is not supported", t)
		}
		leftTables, leftConds, err := parseFrom(t.LeftExpr)
		if err != nil {
			return nil, nil, err
		}
		rightTables, rightConds, err := parseFrom(t.RightExpr)
		if err != nil {
			return nil, nil, err
		}
		conds := append(leftConds, rightConds...)
		if t.Condition.On != nil {
			on, err := parseCondition(t.Condition.On, false)
			if err != nil {
				return nil, nil, err
			}
			conds = append(conds, on)
		}
		return append(leftTables, rightTables...), conds, nil
	}
	return nil, nil, ErrUnsupportedSyntax("unsupported FROM item", te)
}

func parseSelectItem(item sqlparser.SelectExpr) (Expr.Expression, error) {
	switch it := item.(type) {
	case *sqlparser.StarExpr:
		if !it.TableName.IsEmpty() {
			return nil, ErrUnsupportedSyntax("table.* is not supported", it)
		}
		return &Expr.AllColumns{}, nil
	case *sqlparser.AliasedExpr:
		if !it.As.IsEmpty() {
			return nil, ErrUnsupportedSyntax("column aliases are not supported", it)
		}
		switch e := it.Expr.(type) {
		case *sqlparser.ColName:
			return parseColumn(e)
		case *sqlparser.FuncExpr:
			return parseAggregate(e)
		}
		return nil, ErrUnsupportedSyntax("select items must be columns or aggregates", it)
	}
	return nil, ErrUnsupportedSyntax("unsupported select item", item)
}

func parseColumn(e sqlparser.Expr) (*Expr.ColumnResolve, error) {
	if p, ok := e.(*sqlparser.ParenExpr); ok {
		return parseColumn(p.Expr)
	}
	col, ok := e.(*sqlparser.ColName)
	if !ok {
		return nil, ErrUnsupportedSyntax("expected a column", e)
	}
	if col.Qualifier.IsEmpty() {
		return nil, ErrUnsupportedSyntax("columns must be qualified with their table", col)
	}
	if !col.Qualifier.Qualifier.IsEmpty() {
		return nil, ErrUnsupportedSyntax("database qualified columns are not supported", col)
	}
	return Expr.NewColumnResolve(col.Qualifier.Name.String() + "." + col.Name.String()), nil
}

func parseAggregate(fn *sqlparser.FuncExpr) (*Expr.AggregateExpr, error) {
	if fn.Distinct {
		return nil, ErrUnsupportedSyntax("DISTINCT inside aggregates is not supported", fn)
	}
	if len(fn.Exprs) != 1 {
		return nil, ErrUnsupportedSyntax("aggregates take exactly one argument", fn)
	}
	name := fn.Name.Lowered()
	if _, ok := fn.Exprs[0].(*sqlparser.StarExpr); ok {
		if name != "count" {
			return nil, ErrUnsupportedSyntax("* is only allowed in COUNT", fn)
		}
		return Expr.NewCountStar(), nil
	}
	argItem, ok := fn.Exprs[0].(*sqlparser.AliasedExpr)
	if !ok {
		return nil, ErrUnsupportedSyntax("unsupported aggregate argument", fn)
	}
	arg, err := parseScalar(argItem.Expr)
	if err != nil {
		return nil, err
	}
	switch name {
	case "sum":
		return Expr.NewAggregateExpr(Expr.Sum, arg), nil
	case "count":
		return Expr.NewAggregateExpr(Expr.Count, arg), nil
	case "min":
		return Expr.NewAggregateExpr(Expr.Min, arg), nil
	case "max":
		return Expr.NewAggregateExpr(Expr.Max, arg), nil
	}
	return nil, ErrUnsupportedSyntax("unsupported function", fn)
}

// parseScalar accepts integer literals, qualified columns and multiplication.
func parseScalar(e sqlparser.Expr) (Expr.Expression, error) {
	switch n := e.(type) {
	case *sqlparser.ParenExpr:
		return parseScalar(n.Expr)
	case *sqlparser.ColName:
		return parseColumn(n)
	case *sqlparser.SQLVal, *sqlparser.UnaryExpr:
		v, err := parseInt(n)
		if err != nil {
			return nil, err
		}
		return Expr.NewLiteralResolve(v), nil
	case *sqlparser.BinaryExpr:
		if n.Operator != sqlparser.MultStr {
			return nil, ErrUnsupportedSyntax(fmt.Sprintf("arithmetic operator %s is not supported", n.Operator), n)
		}
		left, err := parseScalar(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := parseScalar(n.Right)
		if err != nil {
			return nil, err
		}
		return Expr.NewBinaryExpr(left, Expr.Multiplication, right), nil
	}
	return nil, ErrUnsupportedSyntax("unsupported expression", e)
}

func parseInt(e sqlparser.Expr) (int64, error) {
	switch n := e.(type) {
	case *sqlparser.SQLVal:
		if n.Type != sqlparser.IntVal {
			return 0, ErrUnsupportedSyntax("only integer literals are supported", n)
		}
		v, err := strconv.ParseInt(string(n.Val), 10, 64)
		if err != nil {
			return 0, operators.ErrUnsupported(fmt.Sprintf("integer literal %s out of range", n.Val))
		}
		return v, nil
	case *sqlparser.UnaryExpr:
		if n.Operator != sqlparser.UMinusStr {
			return 0, ErrUnsupportedSyntax("unsupported unary operator", n)
		}
		v, err := parseInt(n.Expr)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case *sqlparser.ParenExpr:
		return parseInt(n.Expr)
	}
	return 0, ErrUnsupportedSyntax("expected an integer literal", e)
}

// parseCondition accepts a conjunction of comparisons. With aggregates set,
// aggregate calls become references to the aggregate output column.
func parseCondition(e sqlparser.Expr, aggregates bool) (Expr.Expression, error) {
	switch n := e.(type) {
	case *sqlparser.ParenExpr:
		return parseCondition(n.Expr, aggregates)
	case *sqlparser.AndExpr:
		left, err := parseCondition(n.Left, aggregates)
		if err != nil {
			return nil, err
		}
		right, err := parseCondition(n.Right, aggregates)
		if err != nil {
			return nil, err
		}
		return Expr.NewBinaryExpr(left, Expr.And, right), nil
	case *sqlparser.OrExpr:
		return nil, ErrUnsupportedSyntax("OR is not supported", n)
	case *sqlparser.NotExpr:
		return nil, ErrUnsupportedSyntax("NOT is not supported", n)
	case *sqlparser.ComparisonExpr:
		left, err := parseOperand(n.Left, aggregates)
		if err != nil {
			return nil, err
		}
		right, err := parseOperand(n.Right, aggregates)
		if err != nil {
			return nil, err
		}
		return comparison(n, left, right)
	}
	return nil, ErrUnsupportedSyntax("conditions must be comparisons joined by AND", e)
}

func parseOperand(e sqlparser.Expr, aggregates bool) (Expr.Expression, error) {
	if fn, ok := e.(*sqlparser.FuncExpr); ok && aggregates {
		agg, err := parseAggregate(fn)
		if err != nil {
			return nil, err
		}
		return Expr.NewColumnResolve(agg.String()), nil
	}
	return parseScalar(e)
}

func comparison(n *sqlparser.ComparisonExpr, left, right Expr.Expression) (Expr.Expression, error) {
	switch n.Operator {
	case sqlparser.EqualStr:
		return Expr.NewBinaryExpr(left, Expr.Equal, right), nil
	case sqlparser.NotEqualStr:
		return Expr.NewBinaryExpr(left, Expr.NotEqual, right), nil
	case sqlparser.LessThanStr:
		return Expr.NewBinaryExpr(left, Expr.LessThan, right), nil
	case sqlparser.LessEqualStr:
		return Expr.NewBinaryExpr(left, Expr.LessThanOrEqual, right), nil
	case sqlparser.GreaterThanStr:
		return Expr.NewBinaryExpr(left, Expr.GreaterThan, right), nil
	case sqlparser.GreaterEqualStr:
		return Expr.NewBinaryExpr(left, Expr.GreaterThanOrEqual, right), nil
	}
	return nil, ErrUnsupportedSyntax(fmt.Sprintf("comparison %s is not supported", n.Operator), n)
}

func parseOrder(o *sqlparser.Order) (OrderItem, error) {
	item := OrderItem{Desc: o.Direction == sqlparser.DescScr}
	if fn, ok := o.Expr.(*sqlparser.FuncExpr); ok {
		agg, err := parseAggregate(fn)
		if err != nil {
			return OrderItem{}, err
		}
		item.Column = Expr.NewColumnResolve(agg.String())
		item.Aggregate = true
		return item, nil
	}
	col, err := parseColumn(o.Expr)
	if err != nil {
		return OrderItem{}, err
	}
	item.Column = col
	return item, nil
}
