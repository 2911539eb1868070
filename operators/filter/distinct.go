package filter

import (
	"io"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&DistinctExec{})
	_ = (operators.Node)(&DistinctExec{})
)

// DistinctExec drops every row equal to one it already emitted. Output keeps
// first occurrence order; memory grows with the number of distinct rows.
type DistinctExec struct {
	input      operators.Operator
	schema     *arrow.Schema
	seenValues map[string]struct{} // Tuple.Key of every emitted row, structs occupie no space
	done       bool
}

func NewDistinctExec(input operators.Operator) (*DistinctExec, error) {
	return &DistinctExec{
		input:      input,
		schema:     input.Schema(),
		seenValues: make(map[string]struct{}),
	}, nil
}

func (d *DistinctExec) Next() (operators.Tuple, error) {
	if d.done {
		return operators.Tuple{}, io.EOF
	}
	for {
		row, err := d.input.Next()
		if err == io.EOF {
			d.done = true
			return operators.Tuple{}, io.EOF
		}
		if err != nil {
			return operators.Tuple{}, err
		}
		key := row.Key()
		if _, seen := d.seenValues[key]; seen {
			continue
		}
		d.seenValues[key] = struct{}{}
		return row, nil
	}
}

func (d *DistinctExec) Reset() error {
	d.seenValues = make(map[string]struct{})
	d.done = false
	return d.input.Reset()
}

func (d *DistinctExec) Schema() *arrow.Schema {
	return d.schema
}

func (d *DistinctExec) Close() error {
	d.seenValues = nil
	return d.input.Close()
}

func (d *DistinctExec) Children() []operators.Operator {
	return []operators.Operator{d.input}
}

func (d *DistinctExec) String() string {
	return "Distinct"
}
