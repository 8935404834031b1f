package schedule

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a stop, route or trip identifier is unknown
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed or inconsistent caller-supplied parameter
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
