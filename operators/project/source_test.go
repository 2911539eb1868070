package project

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"blazedb-go/config"
	"blazedb-go/operators"
	"blazedb-go/storage"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/cockroachdb/errors"
)

func testOpener() *storage.Opener {
	return storage.NewOpener(config.GetConfig())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

// writes one int64 column per entry of columns
func writeParquet(t *testing.T, name string, columns map[string][]int64, order []string) string {
	t.Helper()
	pool := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(order))
	for i, n := range order {
		fields[i] = arrow.Field{Name: n, Type: arrow.PrimitiveTypes.Int64}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()
	for i, n := range order {
		builder.Field(i).(*array.Int64Builder).AppendValues(columns[n], nil)
	}
	record := builder.NewRecord()
	defer record.Release()

	buf := new(bytes.Buffer)
	writerProps := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Uncompressed))
	writer, err := pqarrow.NewFileWriter(schema, buf, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		t.Fatalf("failed to create parquet writer: %v", err)
	}
	if err := writer.Write(record); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

func readAll(t *testing.T, src TableSource) [][]int64 {
	t.Helper()
	r, err := src.Open()
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer r.Close()
	var rows [][]int64
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		rows = append(rows, row)
	}
}

func equalRows(a, b [][]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestCSVSource(t *testing.T) {
	t.Run("trims spaces and skips blank lines", func(t *testing.T) {
		p := writeFile(t, "Student.csv", "1, 50\n\n 2 ,60\n   \n1,70\n")
		src, err := NewCSVSource(testOpener(), p, 2, ",")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := readAll(t, src)
		want := [][]int64{{1, 50}, {2, 60}, {1, 70}}
		if !equalRows(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("custom delimiter and negative values", func(t *testing.T) {
		p := writeFile(t, "T.csv", "-1;0\n9223372036854775807;-9223372036854775808\n")
		src, err := NewCSVSource(testOpener(), p, 2, ";")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := readAll(t, src)
		want := [][]int64{{-1, 0}, {9223372036854775807, -9223372036854775808}}
		if !equalRows(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		src, _ := NewCSVSource(testOpener(), writeFile(t, "E.csv", ""), 3, ",")
		if rows := readAll(t, src); len(rows) != 0 {
			t.Fatalf("expected no rows, got %v", rows)
		}
	})

	malformed := []struct {
		name    string
		content string
	}{
		{"too few values", "1,2\n3\n"},
		{"too many values", "1,2,3\n"},
		{"not an integer", "1,x\n"},
		{"overflow", "1,99999999999999999999\n"},
	}
	for _, tc := range malformed {
		t.Run(tc.name, func(t *testing.T) {
			src, _ := NewCSVSource(testOpener(), writeFile(t, "Bad.csv", tc.content), 2, ",")
			r, err := src.Open()
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}
			defer r.Close()
			for {
				_, err = r.Read()
				if err != nil {
					break
				}
			}
			if err == io.EOF || !errors.Is(err, operators.ErrIO) {
				t.Fatalf("expected io error, got %v", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		src, _ := NewCSVSource(testOpener(), filepath.Join(t.TempDir(), "Missing.csv"), 2, ",")
		if _, err := src.Open(); !errors.Is(err, operators.ErrIO) {
			t.Fatalf("expected io error, got %v", err)
		}
	})

	t.Run("bad delimiter", func(t *testing.T) {
		if _, err := NewCSVSource(testOpener(), "x.csv", 2, "::"); err == nil {
			t.Fatalf("expected error for two character delimiter")
		}
	})
}

func TestParquetSource(t *testing.T) {
	p := writeParquet(t, "Course.parquet", map[string][]int64{
		"E": {1, 2, 3},
		"F": {10, 20, 30},
	}, []string{"E", "F"})

	t.Run("reads rows in order", func(t *testing.T) {
		src, err := NewParquetSource(testOpener(), p, 2, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := readAll(t, src)
		want := [][]int64{{1, 10}, {2, 20}, {3, 30}}
		if !equalRows(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		// reopening starts from the top again
		if again := readAll(t, src); !equalRows(again, want) {
			t.Fatalf("second open: expected %v, got %v", want, again)
		}
	})

	t.Run("arity mismatch", func(t *testing.T) {
		src, _ := NewParquetSource(testOpener(), p, 3, 16)
		if _, err := src.Open(); !errors.Is(err, operators.ErrIO) {
			t.Fatalf("expected io error, got %v", err)
		}
	})

	t.Run("not a parquet file", func(t *testing.T) {
		src, _ := NewParquetSource(testOpener(), writeFile(t, "x.parquet", "1,2\n"), 2, 16)
		if _, err := src.Open(); !errors.Is(err, operators.ErrIO) {
			t.Fatalf("expected io error, got %v", err)
		}
	})
}

func TestInMemorySource(t *testing.T) {
	t.Run("mixed integer widths", func(t *testing.T) {
		src, err := NewInMemorySource("T", []string{"a", "b", "c"}, []any{
			[]int{1, 2},
			[]int32{-3, 4},
			[]uint8{5, 255},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer src.Release()
		got := readAll(t, src)
		want := [][]int64{{1, -3, 5}, {2, 4, 255}}
		if !equalRows(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		if src.Arity() != 3 {
			t.Fatalf("expected arity 3, got %d", src.Arity())
		}
	})

	t.Run("unsupported column type", func(t *testing.T) {
		_, err := NewInMemorySource("T", []string{"a"}, []any{[]string{"x"}})
		if !errors.Is(err, operators.ErrSchema) {
			t.Fatalf("expected schema error, got %v", err)
		}
	})

	t.Run("ragged columns", func(t *testing.T) {
		_, err := NewInMemorySource("T", []string{"a", "b"}, []any{[]int64{1, 2}, []int64{1}})
		if err == nil {
			t.Fatalf("expected error for columns of different length")
		}
	})

	t.Run("rows", func(t *testing.T) {
		src, err := NewInMemoryRows("T", 2, []int64{1, 50}, []int64{2, 60})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := readAll(t, src); !equalRows(got, [][]int64{{1, 50}, {2, 60}}) {
			t.Fatalf("unexpected rows %v", got)
		}
		if _, err := NewInMemoryRows("T", 2, []int64{1}); err == nil {
			t.Fatalf("expected error for short row")
		}
	})
}
