package operators

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/cockroachdb/errors"
)

// error kinds, test with errors.Is
var (
	ErrSchema           = errors.New("schema error")
	ErrUnsupportedQuery = errors.New("unsupported query")
	ErrIO               = errors.New("io error")
)

var (
	ErrColumnNotFound = func(name string, schema *arrow.Schema) error {
		return errors.Mark(
			errors.Newf("column %s not found in schema [%s]", name, strings.Join(ColumnNames(schema), ", ")),
			ErrSchema)
	}
	ErrInvalidSchema = func(info string) error {
		return errors.Mark(errors.Newf("invalid schema was provided. context: %s", info), ErrSchema)
	}
	ErrUnsupported = func(info string) error {
		return errors.Mark(errors.Newf("unsupported query: %s", info), ErrUnsupportedQuery)
	}
	ErrMalformedRecord = func(location string, line int, info string) error {
		return errors.Mark(errors.Newf("%s:%d: malformed record: %s", location, line, info), ErrIO)
	}
)

// WrapIO marks err as an io failure while keeping the original cause.
func WrapIO(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}
