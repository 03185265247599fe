package domain

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a report is requested before any dataset was loaded
var ErrNoData = errors.New("no dataset loaded")

// DateFormatError reports a single date value that cannot be resolved to a
// real calendar date. It is recoverable: the field is treated as absent.
type DateFormatError struct {
	Input  string
	Reason string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

// DataLoadError reports an unreadable source or a missing required column.
// It aborts the load attempt in progress and nothing else.
type DataLoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// NewDataLoadError creates a DataLoadError for the given source
func NewDataLoadError(source, reason string, err error) *DataLoadError {
	return &DataLoadError{Source: source, Reason: reason, Err: err}
}

// ConfigurationError reports an invalid option. It is fatal at startup and reload.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
