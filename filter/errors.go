package filter

import (
	"errors"
	"fmt"
)

// ErrNoExecutor is returned by Builder.Execute when the builder was not
// obtained from a screener.
var ErrNoExecutor = errors.New("query builder is not bound to a screener")

// ValidationError indicates a malformed predicate, group or query.
// It is never retried and is always raised before any network activity.
type ValidationError struct {
	Field  string // friendly or upstream field name, empty for query-level problems
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid filter '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
