package track

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Find and Query when no row matches.
var ErrNotFound = errors.New("entity not found")

// ConflictError reports an UPDATE whose affected-row count did not match
// what the session expected to change. The usual cause is an entity
// classified as already persisted that has no row behind it.
type ConflictError struct {
	Table    string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("saving changes to %s: expected to affect %d row(s) but actually affected %d row(s)",
		e.Table, e.Expected, e.Actual)
}
