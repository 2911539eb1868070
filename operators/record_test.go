package operators

import (
	"io"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cockroachdb/errors"
)

// Test 1: SchemaBuilder.WithField and WithoutField
func TestSchemaBuilderWithField(t *testing.T) {
	sb := NewSchemaBuilder()

	sb.WithField("Student.A").
		WithField("Student.B").
		WithField("Student.C")

	if len(sb.fields) != 3 {
		t.Errorf("Expected 3 fields, got %d", len(sb.fields))
	}

	expectedNames := []string{"Student.A", "Student.B", "Student.C"}
	for i, expected := range expectedNames {
		if sb.fields[i].Name != expected {
			t.Errorf("Field %d: expected name '%s', got '%s'", i, expected, sb.fields[i].Name)
		}
		if !arrow.TypeEqual(sb.fields[i].Type, arrow.PrimitiveTypes.Int64) {
			t.Errorf("Field %d: expected Int64 type, got %s", i, sb.fields[i].Type)
		}
		if sb.fields[i].Nullable {
			t.Errorf("Field %d: expected nullable=false", i)
		}
	}
}

func TestSchemaBuilderWithoutField(t *testing.T) {
	schema := NewSchemaBuilder().
		WithFields("a", "b", "c", "d").
		WithoutField("b", "d").
		Build()

	if schema.NumFields() != 2 {
		t.Fatalf("Expected schema with 2 fields after removal, got %d", schema.NumFields())
	}
	if schema.Field(0).Name != "a" {
		t.Errorf("Expected field 0 name 'a', got '%s'", schema.Field(0).Name)
	}
	if schema.Field(1).Name != "c" {
		t.Errorf("Expected field 1 name 'c', got '%s'", schema.Field(1).Name)
	}
}

func TestIndexOf(t *testing.T) {
	schema := NewSchemaBuilder().WithFields("Student.A", "Student.B").Build()

	t.Run("present column", func(t *testing.T) {
		idx, err := IndexOf(schema, "Student.B")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idx != 1 {
			t.Errorf("expected index 1, got %d", idx)
		}
	})

	t.Run("missing column is a schema error", func(t *testing.T) {
		_, err := IndexOf(schema, "Student.Z")
		if err == nil {
			t.Fatalf("expected error for missing column")
		}
		if !errors.Is(err, ErrSchema) {
			t.Errorf("expected ErrSchema, got %v", err)
		}
	})

	t.Run("unqualified name does not match", func(t *testing.T) {
		if _, err := IndexOf(schema, "A"); err == nil {
			t.Fatalf("expected error for unqualified name")
		}
	})
}

func TestConcatSchemas(t *testing.T) {
	left := NewSchemaBuilder().WithFields("Student.A", "Student.B").Build()
	right := NewSchemaBuilder().WithFields("Enrolled.A", "Enrolled.C").Build()

	joined := ConcatSchemas(left, right)
	got := ColumnNames(joined)
	want := []string{"Student.A", "Student.B", "Enrolled.A", "Enrolled.C"}
	if len(got) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d: expected %s got %s", i, want[i], got[i])
		}
	}
}

func TestTuple(t *testing.T) {
	t.Run("constructor copies input", func(t *testing.T) {
		vals := []int64{1, 2, 3}
		tup := NewTuple(vals...)
		vals[0] = 99
		if tup.Value(0) != 1 {
			t.Errorf("tuple was mutated through the input slice")
		}
	})

	t.Run("values returns a copy", func(t *testing.T) {
		tup := NewTuple(4, 5)
		v := tup.Values()
		v[1] = 0
		if tup.Value(1) != 5 {
			t.Errorf("tuple was mutated through Values()")
		}
	})

	t.Run("equality is element wise", func(t *testing.T) {
		if !NewTuple(1, 50).Equal(NewTuple(1, 50)) {
			t.Errorf("expected equal tuples")
		}
		if NewTuple(1, 50).Equal(NewTuple(1, 51)) {
			t.Errorf("expected different tuples")
		}
		if NewTuple(1).Equal(NewTuple(1, 0)) {
			t.Errorf("tuples of different arity must differ")
		}
	})

	t.Run("key matches equality", func(t *testing.T) {
		if NewTuple(1, 23).Key() == NewTuple(12, 3).Key() {
			t.Errorf("keys of different tuples collided")
		}
		if NewTuple(-1, 2).Key() != NewTuple(-1, 2).Key() {
			t.Errorf("keys of equal tuples differ")
		}
	})

	t.Run("concat and pick", func(t *testing.T) {
		joined := NewTuple(1, 50).Concat(NewTuple(1, 100))
		if joined.String() != "1, 50, 1, 100" {
			t.Errorf("unexpected concat %s", joined)
		}
		picked := joined.Pick([]int{3, 0})
		if picked.Format(",") != "100,1" {
			t.Errorf("unexpected pick %s", picked)
		}
	})
}

type sliceOp struct {
	rows []Tuple
	pos  int
}

func (s *sliceOp) Next() (Tuple, error) {
	if s.pos >= len(s.rows) {
		return Tuple{}, io.EOF
	}
	s.pos++
	return s.rows[s.pos-1], nil
}
func (s *sliceOp) Reset() error          { s.pos = 0; return nil }
func (s *sliceOp) Schema() *arrow.Schema { return NewSchemaBuilder().WithField("t.a").Build() }
func (s *sliceOp) Close() error          { return nil }

func TestDrainAndForEach(t *testing.T) {
	op := &sliceOp{rows: []Tuple{NewTuple(1), NewTuple(2), NewTuple(3)}}
	rows, err := Drain(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if err := op.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	stop := errors.New("stop")
	n, err := ForEach(op, func(t Tuple) error {
		if t.Value(0) == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row before stop, got %d", n)
	}
}
