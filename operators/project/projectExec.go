package project

import (
	"fmt"
	"strings"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&ProjectExec{})
	_ = (operators.Node)(&ProjectExec{})
)

// Requirements lists what the stages above a projection still need to read.
type Requirements struct {
	GroupBy []*Expr.ColumnResolve
	OrderBy []*Expr.ColumnResolve
	// plain columns, *, and aggregate items of the select list
	Select []Expr.Expression
}

// ProjectExec narrows each child row down to a fixed list of column indexes.
type ProjectExec struct {
	child    operators.Operator
	retained []int
	schema   *arrow.Schema
}

// NewProjectExec keeps, in first seen order, the GROUP BY columns, the ORDER BY
// columns, the selected columns and every column read inside an aggregate.
// When that leaves nothing (e.g. SUM(1) or COUNT(*)), the first child column is
// kept so the aggregate still sees one row per input row.
func NewProjectExec(child operators.Operator, req Requirements) (*ProjectExec, error) {
	childSchema := child.Schema()
	keep := newColumnSet()

	for _, c := range req.GroupBy {
		keep.add(c.Name)
	}
	for _, c := range req.OrderBy {
		keep.add(c.Name)
	}
	for _, item := range req.Select {
		switch it := item.(type) {
		case *Expr.ColumnResolve:
			keep.add(it.Name)
		case *Expr.AllColumns:
			// with GROUP BY, * stands for the group columns which are already kept
			if len(req.GroupBy) == 0 {
				for _, name := range operators.ColumnNames(childSchema) {
					keep.add(name)
				}
			}
		}
	}
	for _, item := range req.Select {
		if agg, ok := item.(*Expr.AggregateExpr); ok {
			for _, c := range Expr.ReferencedColumns(agg) {
				keep.add(c.Name)
			}
		}
	}
	if len(keep.names) == 0 {
		if childSchema.NumFields() == 0 {
			return nil, operators.ErrInvalidSchema("nothing to project from an empty schema")
		}
		keep.add(childSchema.Field(0).Name)
	}
	return NewProjectColumnsExec(child, keep.names)
}

// NewProjectColumnsExec keeps exactly the named columns, in the given order.
func NewProjectColumnsExec(child operators.Operator, columns []string) (*ProjectExec, error) {
	if len(columns) == 0 {
		return nil, operators.ErrInvalidSchema("no columns passed in")
	}
	childSchema := child.Schema()
	retained := make([]int, len(columns))
	for i, name := range columns {
		idx, err := operators.IndexOf(childSchema, name)
		if err != nil {
			return nil, err
		}
		retained[i] = idx
	}
	return &ProjectExec{
		child:    child,
		retained: retained,
		schema:   operators.NewSchemaBuilder().WithFields(columns...).Build(),
	}, nil
}

func (p *ProjectExec) Next() (operators.Tuple, error) {
	t, err := p.child.Next()
	if err != nil {
		return operators.Tuple{}, err
	}
	return t.Pick(p.retained), nil
}

func (p *ProjectExec) Reset() error {
	return p.child.Reset()
}

func (p *ProjectExec) Schema() *arrow.Schema {
	return p.schema
}

func (p *ProjectExec) Close() error {
	return p.child.Close()
}

// Retained returns the child column indexes kept, in output order.
func (p *ProjectExec) Retained() []int {
	return append([]int(nil), p.retained...)
}

func (p *ProjectExec) Children() []operators.Operator {
	return []operators.Operator{p.child}
}

func (p *ProjectExec) String() string {
	return fmt.Sprintf("Project(%s)", strings.Join(operators.ColumnNames(p.schema), ", "))
}

type columnSet struct {
	names []string
	seen  map[string]struct{}
}

func newColumnSet() *columnSet {
	return &columnSet{seen: make(map[string]struct{})}
}

func (cs *columnSet) add(name string) {
	if _, ok := cs.seen[name]; ok {
		return
	}
	cs.seen[name] = struct{}{}
	cs.names = append(cs.names, name)
}
