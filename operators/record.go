package operators

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
)

// Operator is a pull based row iterator. Next returns io.EOF once the
// stream is exhausted; any other error aborts the query.
type Operator interface {
	Next() (Tuple, error)
	// Reset rewinds the operator so the next call to Next restarts the stream
	Reset() error
	Schema() *arrow.Schema
	// Call Operator.Close() after Next returns an io.EOF to clean up resources
	Close() error
}

// Node is implemented by every operator in the engine so a plan can be
// printed top down.
type Node interface {
	Operator
	Children() []Operator
	fmt.Stringer
}

// Tuple is an immutable fixed arity row of integers.
type Tuple struct {
	values []int64
}

func NewTuple(values ...int64) Tuple {
	cp := make([]int64, len(values))
	copy(cp, values)
	return Tuple{values: cp}
}

// wraps values without copying, caller must not touch the slice afterwards
func tupleOf(values []int64) Tuple {
	return Tuple{values: values}
}

func (t Tuple) Len() int { return len(t.values) }

func (t Tuple) Value(i int) int64 { return t.values[i] }

func (t Tuple) Values() []int64 { return append([]int64(nil), t.values...) }

func (t Tuple) Concat(o Tuple) Tuple {
	out := make([]int64, 0, len(t.values)+len(o.values))
	out = append(out, t.values...)
	out = append(out, o.values...)
	return tupleOf(out)
}

// Pick builds a new tuple from the values at idx, in idx order.
func (t Tuple) Pick(idx []int) Tuple {
	out := make([]int64, len(idx))
	for i, j := range idx {
		out[i] = t.values[j]
	}
	return tupleOf(out)
}

func (t Tuple) Equal(o Tuple) bool {
	if len(t.values) != len(o.values) {
		return false
	}
	for i := range t.values {
		if t.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// Key is a string that is equal for two tuples iff the tuples are equal.
// Used for hashing rows in distinct and group by.
func (t Tuple) Key() string {
	var b strings.Builder
	for i, v := range t.values {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}

// Format joins the values with sep, this is what ends up in the output file
func (t Tuple) Format(sep string) string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, sep)
}

func (t Tuple) String() string {
	return t.Format(", ")
}

type SchemaBuilder struct {
	fields []arrow.Field
}

func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{
		fields: make([]arrow.Field, 0, 10),
	}
}

// every column in the engine is a non nullable int64
func (sb *SchemaBuilder) WithField(name string) *SchemaBuilder {
	sb.fields = append(sb.fields, arrow.Field{
		Name:     name,
		Type:     arrow.PrimitiveTypes.Int64,
		Nullable: false,
	})
	return sb
}

func (sb *SchemaBuilder) WithFields(names ...string) *SchemaBuilder {
	for _, n := range names {
		sb.WithField(n)
	}
	return sb
}

func (sb *SchemaBuilder) WithoutField(names ...string) *SchemaBuilder {
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}

	newFields := make([]arrow.Field, 0, len(sb.fields))
	for _, field := range sb.fields {
		_, found := nameSet[field.Name]
		if !found {
			newFields = append(newFields, field)
		}
	}
	sb.fields = newFields
	return sb
}

func (sb *SchemaBuilder) Build() *arrow.Schema {
	return arrow.NewSchema(sb.fields, nil)
}

// IndexOf resolves a qualified column name to its position in schema.
func IndexOf(schema *arrow.Schema, name string) (int, error) {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return -1, ErrColumnNotFound(name, schema)
	}
	return idx[0], nil
}

func ColumnNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	return names
}

// ConcatSchemas returns left ++ right, order preserved.
func ConcatSchemas(left, right *arrow.Schema) *arrow.Schema {
	fields := make([]arrow.Field, 0, left.NumFields()+right.NumFields())
	fields = append(fields, left.Fields()...)
	fields = append(fields, right.Fields()...)
	return arrow.NewSchema(fields, nil)
}
