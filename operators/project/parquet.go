package project

import (
	"context"
	"io"

	"blazedb-go/operators"
	"blazedb-go/storage"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/sirupsen/logrus"
)

var (
	_ = (TableSource)(&ParquetSource{})
	_ = (RowReader)(&parquetReader{})
)

var log = logrus.WithField("component", "scan")

type ParquetSource struct {
	opener    *storage.Opener
	location  string
	arity     int
	batchSize int64
}

func NewParquetSource(opener *storage.Opener, location string, arity int, batchSize int) (*ParquetSource, error) {
	if arity <= 0 {
		return nil, operators.ErrInvalidSchema("parquet table needs at least one column")
	}
	if batchSize <= 0 {
		batchSize = 1024
	}
	return &ParquetSource{
		opener:    opener,
		location:  location,
		arity:     arity,
		batchSize: int64(batchSize),
	}, nil
}

func (ps *ParquetSource) Open() (RowReader, error) {
	f, err := ps.opener.Open(ps.location)
	if err != nil {
		return nil, err
	}
	// closing the parquet reader closes f as well
	fileReader, err := file.NewParquetReader(f)
	if err != nil {
		_ = f.Close()
		return nil, operators.WrapIO(err, "failed to read parquet footer of %s", ps.location)
	}
	arrowReader, err := pqarrow.NewFileReader(
		fileReader,
		pqarrow.ArrowReadProperties{BatchSize: ps.batchSize},
		memory.NewGoAllocator(),
	)
	if err != nil {
		_ = fileReader.Close()
		return nil, operators.WrapIO(err, "failed to open parquet file %s", ps.location)
	}
	rdr, err := arrowReader.GetRecordReader(context.TODO(), nil, nil)
	if err != nil {
		_ = fileReader.Close()
		return nil, operators.WrapIO(err, "failed to read parquet file %s", ps.location)
	}
	if err := validateIntegerSchema(rdr.Schema(), ps.arity, ps.location); err != nil {
		rdr.Release()
		_ = fileReader.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"location":   ps.location,
		"row_groups": fileReader.NumRowGroups(),
		"rows":       fileReader.NumRows(),
	}).Debug("opened parquet table")
	return &parquetReader{
		fileReader: fileReader,
		records:    rdr,
		cursor:     recordCursor{location: ps.location},
	}, nil
}

func (ps *ParquetSource) Location() string {
	return ps.location
}

type parquetReader struct {
	fileReader *file.Reader
	records    pqarrow.RecordReader
	cursor     recordCursor
	done       bool // if set to true always return io.EOF
}

func (pr *parquetReader) Read() ([]int64, error) {
	for !pr.done && pr.cursor.exhausted() {
		// the record returned by Next is only valid until the following Next
		if !pr.records.Next() {
			pr.done = true
			if err := pr.records.Err(); err != nil && err != io.EOF {
				return nil, operators.WrapIO(err, "failed to read %s", pr.cursor.location)
			}
			break
		}
		pr.cursor.set(pr.records.Record())
	}
	if pr.done {
		return nil, io.EOF
	}
	return pr.cursor.read()
}

func (pr *parquetReader) Close() error {
	pr.done = true
	if pr.records != nil {
		pr.records.Release()
		pr.records = nil
	}
	if pr.fileReader == nil {
		return nil
	}
	err := pr.fileReader.Close()
	pr.fileReader = nil
	if err != nil {
		return operators.WrapIO(err, "failed to close %s", pr.cursor.location)
	}
	return nil
}
