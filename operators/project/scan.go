package project

import (
	"fmt"
	"io"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&ScanExec{})
	_ = (operators.Node)(&ScanExec{})
)

// ScanExec streams the rows of one stored table. It owns exactly one open
// RowReader at a time.
type ScanExec struct {
	table  string
	schema *arrow.Schema
	source TableSource
	reader RowReader
	done   bool
}

// NewScanExec opens source right away so a missing table fails at plan time.
func NewScanExec(table string, schema *arrow.Schema, source TableSource) (*ScanExec, error) {
	if schema.NumFields() == 0 {
		return nil, operators.ErrInvalidSchema(fmt.Sprintf("table %s has no columns", table))
	}
	reader, err := source.Open()
	if err != nil {
		return nil, err
	}
	return &ScanExec{
		table:  table,
		schema: schema,
		source: source,
		reader: reader,
	}, nil
}

func (s *ScanExec) Next() (operators.Tuple, error) {
	if s.done || s.reader == nil {
		return operators.Tuple{}, io.EOF
	}
	values, err := s.reader.Read()
	if err == io.EOF {
		s.done = true
		return operators.Tuple{}, io.EOF
	}
	if err != nil {
		return operators.Tuple{}, err
	}
	if len(values) != s.schema.NumFields() {
		return operators.Tuple{}, operators.ErrMalformedRecord(s.source.Location(), 0,
			fmt.Sprintf("expected %d values, got %d", s.schema.NumFields(), len(values)))
	}
	return operators.NewTuple(values...), nil
}

// Reset closes the current reader and opens a fresh one.
func (s *ScanExec) Reset() error {
	if err := s.closeReader(); err != nil {
		return err
	}
	reader, err := s.source.Open()
	if err != nil {
		return err
	}
	s.reader = reader
	s.done = false
	return nil
}

func (s *ScanExec) Schema() *arrow.Schema {
	return s.schema
}

func (s *ScanExec) Close() error {
	s.done = true
	return s.closeReader()
}

func (s *ScanExec) closeReader() error {
	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	return err
}

func (s *ScanExec) Table() string {
	return s.table
}

func (s *ScanExec) Children() []operators.Operator {
	return nil
}

func (s *ScanExec) String() string {
	return fmt.Sprintf("Scan(%s @ %s)", s.table, s.source.Location())
}
