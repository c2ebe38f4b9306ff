package tenant

import (
	"errors"
	"fmt"
)

// ErrTenantNotFound is returned by CollectTenantData when the requested
// tenant does not exist. Nothing has been read or written at that point.
var ErrTenantNotFound = errors.New("tenant not found")

// MergeError reports a row-level write failure during merge. The surrounding
// transaction is rolled back wholesale; nothing partial is ever committed.
type MergeError struct {
	Entity string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("failed to merge %s rows: %v", e.Entity, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
