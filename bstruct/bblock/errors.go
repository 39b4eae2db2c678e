package bblock

import (
	"fmt"
)

type (
	// PathError reports a path segment that did not resolve.
	PathError struct {
		Start string
		Field string
		Path  string
	}
	IndexError struct {
		Block string
		Index int
		Len   int
	}
	KeyError struct {
		Block string
		Key   string
	}
)

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q from %q: cannot resolve %q", e.Path, e.Start, e.Field)
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%q has %d children, index %d is out of range", e.Block, e.Len, e.Index)
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%q has no field %q", e.Block, e.Key)
}
