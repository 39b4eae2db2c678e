package bcodec

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	opParse     = "parsing"
	opSerialize = "serializing"
)

// Level locates one field on the path to a failure.
type Level struct {
	Name   string
	Index  int
	Offset int
	Type   string
}

// FieldError is a read or write failure with the chain of fields that led
// to it, innermost first.
type FieldError struct {
	Op     string
	Levels []Level
	Err    error
}

func (e *FieldError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error occurred while %s:", e.Op)
	for _, l := range e.Levels {
		fmt.Fprintf(&b, "\n    %s, index:%d, offset:%d, field_type:%s", l.Name, l.Index, l.Offset, l.Type)
	}
	fmt.Fprintf(&b, "\n%v", e.Err)
	return b.String()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func wrapField(op string, err error, level Level) error {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) && fieldErr.Op == op {
		if n := len(fieldErr.Levels); n == 0 || fieldErr.Levels[n-1] != level {
			fieldErr.Levels = append(fieldErr.Levels, level)
		}
		return fieldErr
	}
	return &FieldError{Op: op, Levels: []Level{level}, Err: err}
}
