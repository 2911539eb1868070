package project

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"blazedb-go/operators"
	"blazedb-go/storage"
)

var (
	_ = (TableSource)(&CSVSource{})
	_ = (RowReader)(&csvReader{})
)

// CSVSource is a headerless file of integer records, one per line.
type CSVSource struct {
	opener   *storage.Opener
	location string
	arity    int
	comma    rune
}

func NewCSVSource(opener *storage.Opener, location string, arity int, delimiter string) (*CSVSource, error) {
	comma := ','
	if delimiter != "" {
		r := []rune(delimiter)
		if len(r) != 1 {
			return nil, operators.ErrInvalidSchema(fmt.Sprintf("csv delimiter must be one character, got %q", delimiter))
		}
		comma = r[0]
	}
	if arity <= 0 {
		return nil, operators.ErrInvalidSchema("csv table needs at least one column")
	}
	return &CSVSource{
		opener:   opener,
		location: location,
		arity:    arity,
		comma:    comma,
	}, nil
}

func (cs *CSVSource) Open() (RowReader, error) {
	f, err := cs.opener.Open(cs.location)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.Comma = cs.comma
	r.TrimLeadingSpace = true
	r.ReuseRecord = true
	// arity is checked per record so the error carries the line number
	r.FieldsPerRecord = -1
	return &csvReader{
		source: cs,
		file:   f,
		r:      r,
	}, nil
}

func (cs *CSVSource) Location() string {
	return cs.location
}

type csvReader struct {
	source *CSVSource
	file   io.Closer
	r      *csv.Reader
	done   bool // if this is set in Read, we have reached EOF
}

func (cr *csvReader) Read() ([]int64, error) {
	if cr.done {
		return nil, io.EOF
	}
	for {
		record, err := cr.r.Read()
		if err == io.EOF {
			cr.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, operators.WrapIO(err, "failed to read %s", cr.source.location)
		}
		line, _ := cr.r.FieldPos(0)
		// a line holding only whitespace reads as a single empty field
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		return cr.parse(record, line)
	}
}

func (cr *csvReader) parse(record []string, line int) ([]int64, error) {
	if len(record) != cr.source.arity {
		return nil, operators.ErrMalformedRecord(cr.source.location, line,
			fmt.Sprintf("expected %d values, got %d", cr.source.arity, len(record)))
	}
	out := make([]int64, len(record))
	for i, cell := range record {
		v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return nil, operators.ErrMalformedRecord(cr.source.location, line,
				fmt.Sprintf("value %q in column %d is not an integer", cell, i+1))
		}
		out[i] = v
	}
	return out, nil
}

func (cr *csvReader) Close() error {
	cr.done = true
	if cr.file == nil {
		return nil
	}
	err := cr.file.Close()
	cr.file = nil
	cr.r = nil
	if err != nil {
		return operators.WrapIO(err, "failed to close %s", cr.source.location)
	}
	return nil
}
