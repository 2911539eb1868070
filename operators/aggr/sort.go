package aggr

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

// order by col asc, col 2 desc .... etc
var (
	_ = (operators.Operator)(&SortExec{})
	_ = (operators.Node)(&SortExec{})
)

type SortKey struct {
	Column    string
	Ascending bool
}

func NewSortKey(column string, options ...bool) SortKey {
	asc := true
	if len(options) > 0 {
		asc = options[0]
	}
	return SortKey{Column: column, Ascending: asc}
}

func (k SortKey) String() string {
	if k.Ascending {
		return k.Column
	}
	return k.Column + " DESC"
}

type SortExec struct {
	child    operators.Operator
	schema   *arrow.Schema
	sortKeys []SortKey
	keyIdx   []int
	// internal book keeping
	rows     []operators.Tuple
	pos      int
	consumed bool // did we finish reading the child?
}

func NewSortExec(child operators.Operator, sortKeys []SortKey) (*SortExec, error) {
	if len(sortKeys) == 0 {
		return nil, operators.ErrUnsupported("sort without keys")
	}
	keyIdx := make([]int, len(sortKeys))
	for i, k := range sortKeys {
		idx, err := operators.IndexOf(child.Schema(), k.Column)
		if err != nil {
			return nil, err
		}
		keyIdx[i] = idx
	}
	return &SortExec{
		child:    child,
		schema:   child.Schema(),
		sortKeys: sortKeys,
		keyIdx:   keyIdx,
	}, nil
}

// for now read everything into memory and sort, there is no spilling
func (s *SortExec) Next() (operators.Tuple, error) {
	if !s.consumed {
		rows, err := operators.Drain(s.child)
		if err != nil {
			return operators.Tuple{}, err
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return s.less(rows[i], rows[j])
		})
		s.rows = rows
		s.pos = 0
		s.consumed = true
	}
	if s.pos >= len(s.rows) {
		return operators.Tuple{}, io.EOF
	}
	s.pos++
	return s.rows[s.pos-1], nil
}

// earlier keys win, ties fall through to the next key
func (s *SortExec) less(a, b operators.Tuple) bool {
	for i, idx := range s.keyIdx {
		av, bv := a.Value(idx), b.Value(idx)
		if av == bv {
			continue
		}
		if s.sortKeys[i].Ascending {
			return av < bv
		}
		return av > bv
	}
	return false
}

func (s *SortExec) Reset() error {
	s.rows = nil
	s.pos = 0
	s.consumed = false
	return s.child.Reset()
}

func (s *SortExec) Schema() *arrow.Schema {
	return s.schema
}

func (s *SortExec) Close() error {
	s.rows = nil
	return s.child.Close()
}

func (s *SortExec) Children() []operators.Operator {
	return []operators.Operator{s.child}
}

func (s *SortExec) String() string {
	keys := make([]string, len(s.sortKeys))
	for i, k := range s.sortKeys {
		keys[i] = k.String()
	}
	return fmt.Sprintf("Sort(%s)", strings.Join(keys, ", "))
}
