package bdesc

import (
	"fmt"
	"strings"
)

type (
	// SanitizationError carries every problem found in one descriptor tree.
	SanitizationError struct {
		Name     string
		Messages []string
	}
	DescEditError struct {
		Name   string
		Reason string
	}
)

func (e *SanitizationError) Error() string {
	return fmt.Sprintf(
		"%q encountered %d error(s) during sanitization:\n%s",
		e.Name, len(e.Messages), strings.Join(e.Messages, "\n"),
	)
}

func (e *DescEditError) Error() string {
	return fmt.Sprintf("cannot edit descriptor %q: %s", e.Name, e.Reason)
}
