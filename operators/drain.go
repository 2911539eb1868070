package operators

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Drain pulls every remaining row out of o.
func Drain(o Operator) ([]Tuple, error) {
	var rows []Tuple
	for {
		t, err := o.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			return nil, err
		}
		rows = append(rows, t)
	}
}

// ForEach calls fn for every row until the stream ends or fn fails.
func ForEach(o Operator, fn func(Tuple) error) (int, error) {
	n := 0
	for {
		t, err := o.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if err := fn(t); err != nil {
			return n, err
		}
		n++
	}
}
