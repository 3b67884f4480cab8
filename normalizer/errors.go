package normalizer

import (
	"errors"
	"fmt"
)

// ErrNoTitle is returned when an item carries no usable title. Such items
// produce no record.
var ErrNoTitle = errors.New("no title could be extracted")

// EntryError describes a single listing entry that could not be turned into
// a record. Entry errors never abort a run; the entry is skipped.
type EntryError struct {
	Page  int
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("page %d entry %d: %v", e.Page, e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// FieldDefault records that a field could not be recovered from the raw
// item and fell back to its documented default. It is a diagnostic, not an
// error.
type FieldDefault struct {
	Field  string
	Reason string
}

func (d FieldDefault) String() string {
	return d.Field + ": " + d.Reason
}
