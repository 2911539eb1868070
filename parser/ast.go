package parser

import (
	"strconv"
	"strings"

	"blazedb-go/Expr"
)

// Statement is a single SELECT, already checked against what the engine can run.
// Select items are *Expr.AllColumns, *Expr.ColumnResolve or *Expr.AggregateExpr.
type Statement struct {
	Distinct bool
	// tables in join order, JOIN ... ON conditions are folded into Where
	From    []string
	Where   Expr.Expression
	Select  []Expr.Expression
	GroupBy []*Expr.ColumnResolve
	OrderBy []OrderItem
	// aggregate calls are already rewritten into columns named after the aggregate
	Having Expr.Expression
	Limit  *int64
}

// OrderItem is one ORDER BY key. An aggregate key names the aggregate output
// column, SUM(Student.B).
type OrderItem struct {
	Column    *Expr.ColumnResolve
	Desc      bool
	Aggregate bool
}

func (o OrderItem) String() string {
	if o.Desc {
		return o.Column.Name + " DESC"
	}
	return o.Column.Name
}

// Aggregates returns the aggregate items of the select list in order.
func (s *Statement) Aggregates() []*Expr.AggregateExpr {
	var out []*Expr.AggregateExpr
	for _, item := range s.Select {
		if agg, ok := item.(*Expr.AggregateExpr); ok {
			out = append(out, agg)
		}
	}
	return out
}

func (s *Statement) HasAggregate() bool {
	return len(s.Aggregates()) > 0
}

// SelectsAll reports whether the select list is exactly *.
func (s *Statement) SelectsAll() bool {
	if len(s.Select) != 1 {
		return false
	}
	_, ok := s.Select[0].(*Expr.AllColumns)
	return ok
}

func (s *Statement) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	items := make([]string, len(s.Select))
	for i, item := range s.Select {
		items[i] = item.String()
	}
	sb.WriteString(strings.Join(items, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(strings.Join(s.From, ", "))
	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where.String())
	}
	if len(s.GroupBy) > 0 {
		keys := make([]string, len(s.GroupBy))
		for i, c := range s.GroupBy {
			keys[i] = c.Name
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}
	if s.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(s.Having.String())
	}
	if len(s.OrderBy) > 0 {
		keys := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			keys[i] = o.String()
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}
	if s.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.FormatInt(*s.Limit, 10))
	}
	return sb.String()
}
