package aggr

import (
	"fmt"

	"blazedb-go/Expr"
	"blazedb-go/operators"
	"blazedb-go/operators/filter"
)

// filter over the aggregate output, aggregate calls in the predicate are
// plain column references named after the aggregate (SUM(T.x))
var (
	_ = (operators.Operator)(&HavingExec{})
	_ = (operators.Node)(&HavingExec{})
)

type HavingExec struct {
	*filter.FilterExec
}

func NewHavingExec(input operators.Operator, havingFilter Expr.Expression) (*HavingExec, error) {
	f, err := filter.NewFilterExec(input, havingFilter)
	if err != nil {
		return nil, err
	}
	return &HavingExec{FilterExec: f}, nil
}

func (h *HavingExec) String() string {
	return fmt.Sprintf("Having(%s)", h.Predicate())
}
