package aggr

import (
	"fmt"
	"io"
	"strings"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

/*
rules for group by:
1.Every group starts from the first row seen with its key, plain columns in SELECT read from that row
2.You can group by multiple columns - creates groups for each unique combination
3.Use HAVING to filter groups (WHERE filters before grouping, HAVING filters after)
4.With no GROUP BY every row falls in one group, and no input means no output row
*/
var (
	_ = (operators.Operator)(&GroupByExec{})
	_ = (operators.Node)(&GroupByExec{})
)

type outputKind int

const (
	fromSeed outputKind = iota
	fromAggregate
)

// one output column: either an index into the seeded row or an aggregate slot
type outputColumn struct {
	kind  outputKind
	index int
}

type group struct {
	seed operators.Tuple
	accs []accumulator
}

// place all unique group keys into a hash table, each key gets its own accumulators
type GroupByExec struct {
	child      operators.Operator
	schema     *arrow.Schema
	selectList []Expr.Expression
	groupBy    []*Expr.ColumnResolve

	groupIdx   []int
	aggregates []*Expr.AggregateExpr
	outputs    []outputColumn

	groups map[string]*group // maps group by key to its accumulators
	order  []*group          // first seen order, used for output
	result []operators.Tuple
	pos    int
	built  bool
}

func NewGroupByExec(child operators.Operator, selectList []Expr.Expression, groupBy []*Expr.ColumnResolve) (*GroupByExec, error) {
	childSchema := child.Schema()
	g := &GroupByExec{
		child:      child,
		selectList: selectList,
		groupBy:    groupBy,
	}
	for _, c := range groupBy {
		idx, err := operators.IndexOf(childSchema, c.Name)
		if err != nil {
			return nil, err
		}
		g.groupIdx = append(g.groupIdx, idx)
	}

	sb := operators.NewSchemaBuilder()
	for _, item := range selectList {
		switch it := item.(type) {
		case *Expr.ColumnResolve:
			idx, err := operators.IndexOf(childSchema, it.Name)
			if err != nil {
				return nil, err
			}
			g.outputs = append(g.outputs, outputColumn{kind: fromSeed, index: idx})
			sb.WithField(it.Name)
		case *Expr.AllColumns:
			// * under aggregation stands for the group columns
			for i, idx := range g.groupIdx {
				g.outputs = append(g.outputs, outputColumn{kind: fromSeed, index: idx})
				sb.WithField(groupBy[i].Name)
			}
		case *Expr.AggregateExpr:
			if _, err := newAccumulator(it); err != nil {
				return nil, err
			}
			if !it.Star {
				if it.Arg == nil {
					return nil, operators.ErrUnsupported(fmt.Sprintf("%s without an argument", it.Func))
				}
				kind, err := Expr.TypeCheck(it.Arg, childSchema)
				if err != nil {
					return nil, err
				}
				if kind != Expr.IntValue {
					return nil, Expr.ErrWrongValueKind(it.Arg, Expr.IntValue)
				}
			}
			g.outputs = append(g.outputs, outputColumn{kind: fromAggregate, index: len(g.aggregates)})
			g.aggregates = append(g.aggregates, it)
			sb.WithField(it.String())
		default:
			return nil, operators.ErrUnsupported(fmt.Sprintf("select item %s under aggregation", item))
		}
	}
	g.schema = sb.Build()
	if g.schema.NumFields() == 0 {
		return nil, operators.ErrUnsupported("aggregation without output columns")
	}
	g.clear()
	return g, nil
}

func (g *GroupByExec) clear() {
	g.groups = make(map[string]*group)
	g.order = nil
	g.result = nil
	g.pos = 0
	g.built = false
}

func (g *GroupByExec) Next() (operators.Tuple, error) {
	if !g.built {
		if err := g.build(); err != nil {
			return operators.Tuple{}, err
		}
	}
	if g.pos >= len(g.result) {
		return operators.Tuple{}, io.EOF
	}
	g.pos++
	return g.result[g.pos-1], nil
}

// drains the child, then renders one row per group
func (g *GroupByExec) build() error {
	childSchema := g.child.Schema()
	_, err := operators.ForEach(g.child, func(row operators.Tuple) error {
		key := ""
		if len(g.groupIdx) > 0 {
			key = row.Pick(g.groupIdx).Key()
		}
		grp, ok := g.groups[key]
		if !ok {
			grp = &group{seed: row, accs: make([]accumulator, len(g.aggregates))}
			for i, agg := range g.aggregates {
				grp.accs[i], _ = newAccumulator(agg)
			}
			g.groups[key] = grp
			g.order = append(g.order, grp)
		}
		for i, agg := range g.aggregates {
			if agg.Star {
				grp.accs[i].Update(1)
				continue
			}
			v, err := Expr.EvalInt(agg.Arg, row, childSchema)
			if err != nil {
				return err
			}
			grp.accs[i].Update(v)
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.result = make([]operators.Tuple, 0, len(g.order))
	for _, grp := range g.order {
		values := make([]int64, len(g.outputs))
		for i, out := range g.outputs {
			if out.kind == fromSeed {
				values[i] = grp.seed.Value(out.index)
			} else {
				values[i] = grp.accs[out.index].Finalize()
			}
		}
		g.result = append(g.result, operators.NewTuple(values...))
	}
	g.built = true
	return nil
}

func (g *GroupByExec) Reset() error {
	g.clear()
	return g.child.Reset()
}

func (g *GroupByExec) Schema() *arrow.Schema {
	return g.schema
}

func (g *GroupByExec) Close() error {
	g.clear()
	return g.child.Close()
}

func (g *GroupByExec) Children() []operators.Operator {
	return []operators.Operator{g.child}
}

func (g *GroupByExec) String() string {
	items := make([]string, len(g.selectList))
	for i, it := range g.selectList {
		items[i] = it.String()
	}
	keys := make([]string, len(g.groupBy))
	for i, c := range g.groupBy {
		keys[i] = c.Name
	}
	if len(keys) == 0 {
		return fmt.Sprintf("GroupAggregate(%s)", strings.Join(items, ", "))
	}
	return fmt.Sprintf("GroupAggregate(%s; group by %s)", strings.Join(items, ", "), strings.Join(keys, ", "))
}
