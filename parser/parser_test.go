package parser

import (
	"testing"

	"blazedb-go/Expr"
	"blazedb-go/operators"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestParseSelect(t *testing.T) {
	s, err := Parse("SELECT Student.A, SUM(Student.B) FROM Student GROUP BY Student.A ORDER BY Student.A")
	require.NoError(t, err)
	require.False(t, s.Distinct)
	require.Equal(t, []string{"Student"}, s.From)
	require.Nil(t, s.Where)
	require.Len(t, s.Select, 2)
	require.Equal(t, "Student.A", s.Select[0].String())
	require.IsType(t, &Expr.ColumnResolve{}, s.Select[0])
	require.Equal(t, "SUM(Student.B)", s.Select[1].String())
	require.IsType(t, &Expr.AggregateExpr{}, s.Select[1])
	require.Len(t, s.GroupBy, 1)
	require.Equal(t, "Student.A", s.GroupBy[0].Name)
	require.Equal(t, []OrderItem{{Column: Expr.NewColumnResolve("Student.A")}}, s.OrderBy)
	require.True(t, s.HasAggregate())
	require.False(t, s.SelectsAll())
	require.Nil(t, s.Limit)
}

func TestParseStar(t *testing.T) {
	s, err := Parse("SELECT * FROM Student WHERE Student.A = 1;")
	require.NoError(t, err)
	require.True(t, s.SelectsAll())
	require.False(t, s.HasAggregate())
	require.Equal(t, "Student.A = 1", s.Where.String())
}

func TestParseDistinct(t *testing.T) {
	s, err := Parse("SELECT DISTINCT Student.A FROM Student")
	require.NoError(t, err)
	require.True(t, s.Distinct)
	require.Equal(t, "SELECT DISTINCT Student.A FROM Student", s.String())
}

func TestParseWhere(t *testing.T) {
	s, err := Parse("SELECT * FROM Student, Enrolled WHERE Student.A = Enrolled.A AND Student.B * 2 >= -10 AND (1 < 2)")
	require.NoError(t, err)
	require.Equal(t, []string{"Student", "Enrolled"}, s.From)
	atoms := Expr.Conjuncts(s.Where)
	require.Len(t, atoms, 3)
	require.Equal(t, "Student.A = Enrolled.A", atoms[0].String())
	require.Equal(t, "(Student.B * 2) >= -10", atoms[1].String())
	require.Equal(t, "1 < 2", atoms[2].String())
}

func TestParseComparisons(t *testing.T) {
	ops := map[string]string{
		"=":  "=",
		"!=": "!=",
		"<>": "!=",
		"<":  "<",
		"<=": "<=",
		">":  ">",
		">=": ">=",
	}
	for sqlOp, want := range ops {
		t.Run(sqlOp, func(t *testing.T) {
			s, err := Parse("SELECT * FROM T WHERE T.a " + sqlOp + " 3")
			require.NoError(t, err)
			b, ok := s.Where.(*Expr.BinaryExpr)
			require.True(t, ok)
			require.Equal(t, want, b.Op.String())
		})
	}
}

func TestParseJoinOn(t *testing.T) {
	s, err := Parse("SELECT Student.A FROM Student JOIN Enrolled ON Student.A = Enrolled.A INNER JOIN Course ON Enrolled.C = Course.C WHERE Student.B > 5")
	require.NoError(t, err)
	require.Equal(t, []string{"Student", "Enrolled", "Course"}, s.From)
	atoms := Expr.Conjuncts(s.Where)
	require.Len(t, atoms, 3)
	require.Equal(t, "Student.A = Enrolled.A", atoms[0].String())
	require.Equal(t, "Enrolled.C = Course.C", atoms[1].String())
	require.Equal(t, "Student.B > 5", atoms[2].String())
}

func TestParseAggregates(t *testing.T) {
	s, err := Parse("SELECT SUM(Student.A * Student.B), COUNT(*), COUNT(Student.A), MIN(Student.B), MAX(Student.B), SUM(1) FROM Student")
	require.NoError(t, err)
	names := make([]string, len(s.Select))
	for i, item := range s.Select {
		names[i] = item.String()
	}
	require.Equal(t, []string{
		"SUM(Student.A * Student.B)", "COUNT(*)", "COUNT(Student.A)", "MIN(Student.B)", "MAX(Student.B)", "SUM(1)",
	}, names)
	require.Len(t, s.Aggregates(), 6)
	require.True(t, s.Aggregates()[1].Star)
}

func TestParseHavingOrderLimit(t *testing.T) {
	s, err := Parse("SELECT Student.A, SUM(Student.B) FROM Student GROUP BY Student.A HAVING SUM(Student.B) > 100 AND Student.A < 9 ORDER BY SUM(Student.B) DESC, Student.A LIMIT 5")
	require.NoError(t, err)
	require.Equal(t, "(SUM(Student.B) > 100) AND (Student.A < 9)", s.Having.String())
	atoms := Expr.Conjuncts(s.Having)
	require.IsType(t, &Expr.ColumnResolve{}, atoms[0].(*Expr.BinaryExpr).Left)

	require.Len(t, s.OrderBy, 2)
	require.Equal(t, OrderItem{Column: Expr.NewColumnResolve("SUM(Student.B)"), Desc: true, Aggregate: true}, s.OrderBy[0])
	require.Equal(t, OrderItem{Column: Expr.NewColumnResolve("Student.A")}, s.OrderBy[1])
	require.NotNil(t, s.Limit)
	require.Equal(t, int64(5), *s.Limit)
	require.Equal(t, "SELECT Student.A, SUM(Student.B) FROM Student GROUP BY Student.A HAVING (SUM(Student.B) > 100) AND (Student.A < 9) ORDER BY SUM(Student.B) DESC, Student.A LIMIT 5", s.String())
}

func TestParseUnsupported(t *testing.T) {
	queries := map[string]string{
		"not a select":        "DELETE FROM Student",
		"or":                  "SELECT * FROM Student WHERE Student.A = 1 OR Student.B = 2",
		"not":                 "SELECT * FROM Student WHERE NOT Student.A = 1",
		"addition":            "SELECT * FROM Student WHERE Student.A + 1 = 2",
		"division":            "SELECT SUM(Student.A / 2) FROM Student",
		"string literal":      "SELECT * FROM Student WHERE Student.A = 'x'",
		"float literal":       "SELECT * FROM Student WHERE Student.A = 1.5",
		"unqualified column":  "SELECT A FROM Student",
		"table alias":         "SELECT S.A FROM Student S",
		"column alias":        "SELECT Student.A AS x FROM Student",
		"subquery":            "SELECT * FROM (SELECT * FROM Student) AS s",
		"left join":           "SELECT * FROM Student LEFT JOIN Enrolled ON Student.A = Enrolled.A",
		"duplicate table":     "SELECT * FROM Student, Student",
		"unknown function":    "SELECT AVG(Student.A) FROM Student",
		"sum star":            "SELECT SUM(*) FROM Student",
		"distinct aggregate":  "SELECT COUNT(DISTINCT Student.A) FROM Student",
		"literal select item": "SELECT 1 FROM Student",
		"star with columns":   "SELECT *, Student.A FROM Student",
		"like":                "SELECT * FROM Student WHERE Student.A LIKE 1",
		"offset":              "SELECT * FROM Student LIMIT 1, 2",
		"group by expression": "SELECT * FROM Student GROUP BY Student.A * 2",
		"syntax error":        "SELECT FROM WHERE",
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(q)
			require.Error(t, err)
			require.True(t, errors.Is(err, operators.ErrUnsupportedQuery), "expected unsupported query error, got %v", err)
		})
	}
}
