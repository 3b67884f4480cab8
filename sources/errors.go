package sources

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD or DD/MM/YYYY")
	ErrInvertedRange    = errors.New("end date is before start date")
	ErrNotOpened        = errors.New("reader has not been opened")
)

// ConfigurationError reports invalid filter input. It is raised before any
// retrieval takes place.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// RetrievalError reports that a whole page could not be fetched. It ends the
// read; records gathered from earlier pages remain valid.
type RetrievalError struct {
	Page int
	URL  string
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
