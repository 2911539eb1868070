package filter

import (
	"io"
	"testing"

	"blazedb-go/Expr"
	"blazedb-go/operators"
	"blazedb-go/operators/project"

	"github.com/cockroachdb/errors"
)

func scanOf(t *testing.T, table string, columns []string, rows ...[]int64) *project.ScanExec {
	t.Helper()
	src, err := project.NewInMemoryRows(table, len(columns), rows...)
	if err != nil {
		t.Fatalf("failed to create in memory source: %v", err)
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = table + "." + c
	}
	scan, err := project.NewScanExec(table, operators.NewSchemaBuilder().WithFields(names...).Build(), src)
	if err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}
	return scan
}

// Student(A, B): (1,50),(2,60),(1,70)
func studentScan(t *testing.T) *project.ScanExec {
	return scanOf(t, "Student", []string{"A", "B"}, []int64{1, 50}, []int64{2, 60}, []int64{1, 70})
}

func drain(t *testing.T, op operators.Operator) []string {
	t.Helper()
	rows, err := operators.Drain(op)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Format(",")
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterExec(t *testing.T) {
	a := Expr.NewColumnResolve("Student.A")
	b := Expr.NewColumnResolve("Student.B")

	tests := []struct {
		name string
		pred Expr.Expression
		want []string
	}{
		{
			name: "equality keeps original order",
			pred: Expr.NewBinaryExpr(a, Expr.Equal, Expr.NewLiteralResolve(1)),
			want: []string{"1,50", "1,70"},
		},
		{
			name: "literal on the left",
			pred: Expr.NewBinaryExpr(Expr.NewLiteralResolve(60), Expr.LessThanOrEqual, b),
			want: []string{"2,60", "1,70"},
		},
		{
			name: "conjunction",
			pred: Expr.NewBinaryExpr(
				Expr.NewBinaryExpr(a, Expr.Equal, Expr.NewLiteralResolve(1)),
				Expr.And,
				Expr.NewBinaryExpr(b, Expr.GreaterThan, Expr.NewLiteralResolve(60)),
			),
			want: []string{"1,70"},
		},
		{
			name: "multiplication inside comparison",
			pred: Expr.NewBinaryExpr(Expr.NewBinaryExpr(a, Expr.Multiplication, b), Expr.Equal, Expr.NewLiteralResolve(120)),
			want: []string{"2,60"},
		},
		{
			name: "nothing matches",
			pred: Expr.NewBinaryExpr(a, Expr.NotEqual, a),
			want: []string{},
		},
		{
			name: "constant true",
			pred: Expr.NewBinaryExpr(Expr.NewLiteralResolve(1), Expr.Equal, Expr.NewLiteralResolve(1)),
			want: []string{"1,50", "2,60", "1,70"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilterExec(studentScan(t), tt.pred)
			if err != nil {
				t.Fatalf("failed to create filter: %v", err)
			}
			defer f.Close()
			if got := drain(t, f); !equalStrings(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if _, err := f.Next(); err != io.EOF {
				t.Fatalf("expected io.EOF after exhaustion, got %v", err)
			}
			if err := f.Reset(); err != nil {
				t.Fatalf("reset failed: %v", err)
			}
			if got := drain(t, f); !equalStrings(got, tt.want) {
				t.Fatalf("after reset expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFilterExecInvalidPredicate(t *testing.T) {
	a := Expr.NewColumnResolve("Student.A")
	cmp := Expr.NewBinaryExpr(a, Expr.Equal, Expr.NewLiteralResolve(1))

	if _, err := NewFilterExec(studentScan(t), Expr.NewBinaryExpr(Expr.NewColumnResolve("Student.Z"), Expr.Equal, a)); !errors.Is(err, operators.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if _, err := NewFilterExec(studentScan(t), Expr.NewBinaryExpr(cmp, Expr.Or, cmp)); !errors.Is(err, operators.ErrUnsupportedQuery) {
		t.Fatalf("expected unsupported query error, got %v", err)
	}
	if _, err := NewFilterExec(studentScan(t), a); !errors.Is(err, operators.ErrUnsupportedQuery) {
		t.Fatalf("expected unsupported query error for non boolean predicate, got %v", err)
	}
	if _, err := NewFilterExec(studentScan(t), nil); err == nil {
		t.Fatalf("expected error for nil predicate")
	}
}
