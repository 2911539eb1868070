package planner

import (
	"fmt"
	"strings"

	"blazedb-go/Expr"
	"blazedb-go/catalog"
	"blazedb-go/operators"
	join "blazedb-go/operators/Join"
	"blazedb-go/operators/aggr"
	"blazedb-go/operators/filter"
	"blazedb-go/operators/project"
	"blazedb-go/parser"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "planner")

type options struct {
	hashJoin bool
}

type Option func(*options)

// WithHashJoin plans joins that carry an equality between the two inputs as
// hash joins. Rows come out in the same order either way.
func WithHashJoin(enabled bool) Option {
	return func(o *options) { o.hashJoin = enabled }
}

/*
Plan builds the operator tree bottom up, every stage only when its clause is present:

	scan (+ select) per FROM table
	left deep join chain
	project      columns the stages above still read
	group by     aggregates / GROUP BY
	having
	sort         ORDER BY
	project      back to the select list (no aggregation only)
	distinct
	limit

On error every operator opened so far is closed.
*/
func Plan(stmt *parser.Statement, cat *catalog.Catalog, opts ...Option) (root operators.Operator, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(stmt, cat); err != nil {
		return nil, err
	}
	selections, joins, err := ExtractConditions(stmt.Where, stmt.From)
	if err != nil {
		return nil, err
	}

	var leaves []operators.Operator
	defer func() {
		if err == nil {
			return
		}
		if root != nil {
			err = errors.CombineErrors(err, root.Close())
			root = nil
			return
		}
		for _, leaf := range leaves {
			err = errors.CombineErrors(err, leaf.Close())
		}
	}()

	for _, table := range stmt.From {
		var leaf operators.Operator
		scan, err := cat.Scan(table)
		if err != nil {
			return nil, err
		}
		leaf = scan
		if pred, ok := selections[table]; ok {
			sel, err := filter.NewFilterExec(scan, pred)
			if err != nil {
				leaves = append(leaves, scan)
				return nil, err
			}
			log.WithFields(logrus.Fields{"table": table, "predicate": pred.String()}).Debug("attached selection")
			leaf = sel
		}
		leaves = append(leaves, leaf)
	}

	// from here on root owns every leaf
	root, leaves, err = buildJoins(stmt.From, leaves, joins, o.hashJoin)
	if err != nil {
		return nil, err
	}

	wrap := func(stage string, build func(child operators.Operator) (operators.Operator, error)) error {
		next, err := build(root)
		if err != nil {
			return err
		}
		root = next
		log.WithField("operator", fmt.Sprint(root)).Debugf("added %s stage", stage)
		return nil
	}

	aggregating := stmt.HasAggregate() || len(stmt.GroupBy) > 0
	if !stmt.SelectsAll() || aggregating {
		req := project.Requirements{GroupBy: stmt.GroupBy, Select: stmt.Select}
		for _, o := range stmt.OrderBy {
			if !o.Aggregate {
				req.OrderBy = append(req.OrderBy, o.Column)
			}
		}
		if err := wrap("project", func(child operators.Operator) (operators.Operator, error) {
			return project.NewProjectExec(child, req)
		}); err != nil {
			return root, err
		}
	}

	if aggregating {
		if err := wrap("group by", func(child operators.Operator) (operators.Operator, error) {
			return aggr.NewGroupByExec(child, stmt.Select, stmt.GroupBy)
		}); err != nil {
			return root, err
		}
	}

	if stmt.Having != nil {
		if !aggregating {
			return root, operators.ErrUnsupported("HAVING without GROUP BY or aggregates")
		}
		if err := wrap("having", func(child operators.Operator) (operators.Operator, error) {
			return aggr.NewHavingExec(child, stmt.Having)
		}); err != nil {
			return root, err
		}
	}

	if len(stmt.OrderBy) > 0 {
		keys := make([]aggr.SortKey, len(stmt.OrderBy))
		for i, o := range stmt.OrderBy {
			keys[i] = aggr.NewSortKey(o.Column.Name, !o.Desc)
		}
		if err := wrap("sort", func(child operators.Operator) (operators.Operator, error) {
			return aggr.NewSortExec(child, keys)
		}); err != nil {
			return root, err
		}
	}

	if !aggregating && !stmt.SelectsAll() {
		names := selectedColumns(stmt.Select)
		if !sameColumns(operators.ColumnNames(root.Schema()), names) {
			if err := wrap("output project", func(child operators.Operator) (operators.Operator, error) {
				return project.NewProjectColumnsExec(child, names)
			}); err != nil {
				return root, err
			}
		}
	}

	if stmt.Distinct {
		if err := wrap("distinct", func(child operators.Operator) (operators.Operator, error) {
			return filter.NewDistinctExec(child)
		}); err != nil {
			return root, err
		}
	}

	if stmt.Limit != nil {
		if err := wrap("limit", func(child operators.Operator) (operators.Operator, error) {
			return filter.NewLimitExec(child, *stmt.Limit)
		}); err != nil {
			return root, err
		}
	}

	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		log.Debugf("query plan:\n%s", Explain(root))
	}
	return root, nil
}

// validate checks FROM against the catalog and that WHERE only reads FROM tables.
func validate(stmt *parser.Statement, cat *catalog.Catalog) error {
	if len(stmt.From) == 0 {
		return operators.ErrUnsupported("query has no FROM clause")
	}
	from := make(map[string]struct{}, len(stmt.From))
	for _, t := range stmt.From {
		if _, ok := from[t]; ok {
			return operators.ErrUnsupported(fmt.Sprintf("table %s appears twice in FROM", t))
		}
		from[t] = struct{}{}
		if _, err := cat.Table(t); err != nil {
			return err
		}
	}
	for _, c := range Expr.ReferencedColumns(stmt.Where) {
		if _, ok := from[c.Table()]; !ok {
			return errors.Mark(
				errors.Newf("column %s references table %s which is not in FROM [%s]", c.Name, c.Table(), strings.Join(stmt.From, ", ")),
				operators.ErrSchema)
		}
	}
	if len(stmt.Select) == 0 {
		return operators.ErrUnsupported("empty select list")
	}
	return nil
}

// buildJoins folds the leaves into a left deep tree. A join predicate is
// attached at the first join where all of its tables are available, tables
// already folded in count as the left side. Leaves that were not joined yet
// are returned so the caller can close them on error.
func buildJoins(from []string, leaves []operators.Operator, joins []JoinPredicate, hashJoin bool) (operators.Operator, []operators.Operator, error) {
	root := leaves[0]
	joined := map[string]struct{}{from[0]: {}}
	used := make([]bool, len(joins))
	for i := 1; i < len(from); i++ {
		next := from[i]
		var preds []Expr.Expression
		for k, jp := range joins {
			if !used[k] && jp.joinable(joined, next) {
				used[k] = true
				preds = append(preds, jp.Expr)
			}
		}
		pred := Expr.Conjoin(preds...)
		j, err := newJoin(root, leaves[i], pred, hashJoin)
		if err != nil {
			return nil, append([]operators.Operator{root}, leaves[i:]...), err
		}
		if pred == nil {
			log.WithField("table", next).Debug("no join predicate, cartesian product")
		} else {
			log.WithFields(logrus.Fields{"table": next, "predicate": pred.String()}).Debug("found join predicate")
		}
		root = j
		joined[next] = struct{}{}
	}
	return root, nil, nil
}

func newJoin(left, right operators.Operator, pred Expr.Expression, hashJoin bool) (operators.Operator, error) {
	if hashJoin && pred != nil {
		if clause, residual, ok := join.SplitJoinClause(pred, left.Schema(), right.Schema()); ok {
			return join.NewHashJoinExec(left, right, clause, residual)
		}
	}
	return join.NewJoinExec(left, right, pred)
}

func selectedColumns(items []Expr.Expression) []string {
	var names []string
	for _, item := range items {
		if c, ok := item.(*Expr.ColumnResolve); ok {
			names = append(names, c.Name)
		}
	}
	return names
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Explain renders the operator tree, one operator per line, children indented.
func Explain(op operators.Operator) string {
	var sb strings.Builder
	explain(&sb, op, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func explain(sb *strings.Builder, op operators.Operator, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	node, ok := op.(operators.Node)
	if !ok {
		fmt.Fprintf(sb, "%T\n", op)
		return
	}
	sb.WriteString(node.String())
	sb.WriteString("\n")
	for _, child := range node.Children() {
		explain(sb, child, depth+1)
	}
}
