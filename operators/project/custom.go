package project

import (
	"fmt"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

var (
	_ = (TableSource)(&InMemorySource{})
	_ = (RowReader)(&inMemoryReader{})
)

// in memory table, used by tests and by callers embedding the engine

var (
	ErrInvalidInMemoryDataType = func(Type any) error {
		return operators.ErrInvalidSchema(fmt.Sprintf("%T is not a supported in memory dataType for InMemorySource", Type))
	}
)

type InMemorySource struct {
	name   string
	record arrow.Record
}

// NewInMemorySource builds a table from whole columns. Every column must be
// an integer slice and all columns must have the same length.
func NewInMemorySource(name string, columnNames []string, columns []any) (*InMemorySource, error) {
	if len(columnNames) != len(columns) {
		return nil, operators.ErrInvalidSchema("number of column names and columns do not match")
	}
	if len(columns) == 0 {
		return nil, operators.ErrInvalidSchema("in memory table needs at least one column")
	}
	fields := make([]arrow.Field, 0, len(columns))
	arrays := make([]arrow.Array, 0, len(columns))
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()
	rows := -1
	for i, col := range columns {
		field, arr, err := unpackColumn(columnNames[i], col)
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, arr)
		if rows >= 0 && arr.Len() != rows {
			return nil, operators.ErrInvalidSchema(fmt.Sprintf("column %s has %d rows, expected %d", columnNames[i], arr.Len(), rows))
		}
		rows = arr.Len()
		fields = append(fields, field)
	}
	schema := arrow.NewSchema(fields, nil)
	return &InMemorySource{
		name:   name,
		record: array.NewRecord(schema, arrays, int64(rows)),
	}, nil
}

// NewInMemoryRows builds a table of the given arity from row literals.
func NewInMemoryRows(name string, arity int, rows ...[]int64) (*InMemorySource, error) {
	names := make([]string, arity)
	columns := make([]any, arity)
	for c := 0; c < arity; c++ {
		names[c] = fmt.Sprintf("c%d", c)
		col := make([]int64, len(rows))
		for r, row := range rows {
			if len(row) != arity {
				return nil, operators.ErrInvalidSchema(fmt.Sprintf("row %d has %d values, expected %d", r, len(row), arity))
			}
			col[r] = row[c]
		}
		columns[c] = col
	}
	return NewInMemorySource(name, names, columns)
}

func (ms *InMemorySource) Open() (RowReader, error) {
	ms.record.Retain()
	r := &inMemoryReader{}
	r.cursor.location = ms.Location()
	r.cursor.set(ms.record)
	return r, nil
}

func (ms *InMemorySource) Location() string {
	return "memory:" + ms.name
}

func (ms *InMemorySource) Arity() int {
	return int(ms.record.NumCols())
}

// Release frees the arrow buffers once no reader is left open.
func (ms *InMemorySource) Release() {
	ms.record.Release()
}

type inMemoryReader struct {
	cursor recordCursor
}

func (r *inMemoryReader) Read() ([]int64, error) {
	return r.cursor.read()
}

func (r *inMemoryReader) Close() error {
	if r.cursor.rec != nil {
		r.cursor.rec.Release()
		r.cursor.rec = nil
	}
	return nil
}

func unpackColumn(name string, col any) (arrow.Field, arrow.Array, error) {
	// need to not only build the array; but also need the schema
	field := arrow.Field{Name: name, Nullable: false}
	mem := memory.DefaultAllocator
	switch data := col.(type) {
	case []int:
		field.Type = arrow.PrimitiveTypes.Int64
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range data {
			b.Append(int64(v))
		}
		return field, b.NewArray(), nil
	case []int64:
		field.Type = arrow.PrimitiveTypes.Int64
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	case []int32:
		field.Type = arrow.PrimitiveTypes.Int32
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	case []int16:
		field.Type = arrow.PrimitiveTypes.Int16
		b := array.NewInt16Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	case []int8:
		field.Type = arrow.PrimitiveTypes.Int8
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	case []uint32:
		field.Type = arrow.PrimitiveTypes.Uint32
		b := array.NewUint32Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	case []uint16:
		field.Type = arrow.PrimitiveTypes.Uint16
		b := array.NewUint16Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	case []uint8:
		field.Type = arrow.PrimitiveTypes.Uint8
		b := array.NewUint8Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return field, b.NewArray(), nil
	}
	return arrow.Field{}, nil, ErrInvalidInMemoryDataType(col)
}
