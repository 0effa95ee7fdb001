package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequired is returned when a row lacks a resolvable amount or date.
	ErrMissingRequired = errors.New("missing required field")

	// ErrNotDelimited is returned for lines that contain no pipe character.
	ErrNotDelimited = errors.New("line is not pipe-delimited")

	// ErrTooFewFields is returned for pipe-delimited lines with fewer than four parts.
	ErrTooFewFields = errors.New("expected at least 4 pipe-delimited fields")

	// ErrInvalidEncoding is returned when text input is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8 text")
)

// RowError is a recoverable failure scoped to one tabular row or one text
// line. A session logs it as a warning and moves on; every other error
// returned from this package aborts the whole file.
type RowError struct {
	Row  int    // 1-based data row index, tabular inputs only
	Line string // offending line, line-oriented inputs only
	Err  error
}

// Error renders the warning text recorded in the anomaly log.
func (e *RowError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("Error parsing line '%s': %v", e.Line, e.Err)
	}
	return fmt.Sprintf("Error processing row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// IsRowError reports whether err is recoverable at the row or line boundary.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}
