package project

import (
	"fmt"
	"io"

	"blazedb-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/cockroachdb/errors"
)

// checks that every column of schema can be read as an int64
func validateIntegerSchema(schema *arrow.Schema, arity int, location string) error {
	if schema.NumFields() != arity {
		return operators.ErrMalformedRecord(location, 0,
			fmt.Sprintf("expected %d columns, file has %d", arity, schema.NumFields()))
	}
	for _, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
			arrow.UINT8, arrow.UINT16, arrow.UINT32:
		default:
			return operators.ErrMalformedRecord(location, 0,
				fmt.Sprintf("column %s has type %s, only integer columns are supported", f.Name, f.Type))
		}
	}
	return nil
}

func intValue(col arrow.Array, i int) (int64, error) {
	if col.IsNull(i) {
		return 0, errors.Newf("null value at row %d", i)
	}
	switch c := col.(type) {
	case *array.Int64:
		return c.Value(i), nil
	case *array.Int32:
		return int64(c.Value(i)), nil
	case *array.Int16:
		return int64(c.Value(i)), nil
	case *array.Int8:
		return int64(c.Value(i)), nil
	case *array.Uint32:
		return int64(c.Value(i)), nil
	case *array.Uint16:
		return int64(c.Value(i)), nil
	case *array.Uint8:
		return int64(c.Value(i)), nil
	}
	return 0, errors.Newf("unsupported column type %s", col.DataType())
}

// recordCursor unrolls arrow records into rows, one row per read.
type recordCursor struct {
	location string
	rec      arrow.Record
	row      int
	offset   int // rows consumed from earlier records, for error positions
}

func (rc *recordCursor) set(rec arrow.Record) {
	rc.offset += rc.row
	rc.rec = rec
	rc.row = 0
}

// exhausted reports whether the current record has no rows left
func (rc *recordCursor) exhausted() bool {
	return rc.rec == nil || rc.row >= int(rc.rec.NumRows())
}

func (rc *recordCursor) read() ([]int64, error) {
	if rc.exhausted() {
		return nil, io.EOF
	}
	out := make([]int64, rc.rec.NumCols())
	for c := range out {
		v, err := intValue(rc.rec.Column(c), rc.row)
		if err != nil {
			return nil, operators.ErrMalformedRecord(rc.location, rc.offset+rc.row+1, err.Error())
		}
		out[c] = v
	}
	rc.row++
	return out, nil
}
