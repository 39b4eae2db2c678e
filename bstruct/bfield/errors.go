package bfield

import (
	"fmt"
	"strings"
)

type (
	// ConfigError lists every contradiction found while building a registry.
	ConfigError struct {
		Messages []string
	}
	DecodeError struct {
		Type   string
		Reason string
	}
	EncodeError struct {
		Type   string
		Value  any
		Reason string
	}
)

func (e *ConfigError) Error() string {
	return "invalid field type configuration:\n    " + strings.Join(e.Messages, "\n    ")
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.Type, e.Reason)
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode %#v as %s: %s", e.Value, e.Type, e.Reason)
}

func decodeErr(t *Type, format string, args ...any) error {
	return &DecodeError{Type: t.name, Reason: fmt.Sprintf(format, args...)}
}

func encodeErr(t *Type, v any, format string, args ...any) error {
	return &EncodeError{Type: t.name, Value: v, Reason: fmt.Sprintf(format, args...)}
}
