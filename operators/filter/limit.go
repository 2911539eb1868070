package filter

import (
	"fmt"
	"io"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&LimitExec{})
	_ = (operators.Node)(&LimitExec{})
)

// LimitExec stops the stream after count rows, without draining the rest of the child.
type LimitExec struct {
	input     operators.Operator
	schema    *arrow.Schema
	count     uint64
	remaining uint64
}

func NewLimitExec(input operators.Operator, count int64) (*LimitExec, error) {
	if count < 0 {
		return nil, operators.ErrUnsupported(fmt.Sprintf("negative limit %d", count))
	}
	return &LimitExec{
		input:     input,
		schema:    input.Schema(),
		count:     uint64(count),
		remaining: uint64(count),
	}, nil
}

func (l *LimitExec) Next() (operators.Tuple, error) {
	if l.remaining == 0 {
		return operators.Tuple{}, io.EOF
	}
	row, err := l.input.Next()
	if err != nil {
		return operators.Tuple{}, err
	}
	l.remaining--
	return row, nil
}

func (l *LimitExec) Reset() error {
	l.remaining = l.count
	return l.input.Reset()
}

func (l *LimitExec) Schema() *arrow.Schema {
	return l.schema
}

func (l *LimitExec) Close() error {
	return l.input.Close()
}

func (l *LimitExec) Children() []operators.Operator {
	return []operators.Operator{l.input}
}

func (l *LimitExec) String() string {
	return fmt.Sprintf("Limit(%d)", l.count)
}
