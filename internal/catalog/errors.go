package catalog

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("product not found")

// MalformedRecordError reports a catalog line that cannot be turned into a Product.
type MalformedRecordError struct {
	Source string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: malformed product record: %s: %v", e.Source, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s:%d: malformed product record: %s", e.Source, e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// DuplicateIDError is logged, not returned: the later record replaces the earlier one.
type DuplicateIDError struct {
	ID        string
	FirstLine int
	Line      int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate product id %q on line %d (first seen on line %d)", e.ID, e.Line, e.FirstLine)
}
