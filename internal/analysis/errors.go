package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewNumeric is returned when a dataset exposes fewer than two numeric columns.
	ErrTooFewNumeric = errors.New("dataset must contain numeric columns")
	// ErrEmptyDataset indicates the file had no header row.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrUnknownColumn indicates a selected column does not exist or is not numeric.
	ErrUnknownColumn = errors.New("unknown numeric column")
	// ErrConstantColumn indicates a zero-variance column; correlation is undefined.
	ErrConstantColumn = errors.New("column is constant")
	// ErrLengthMismatch indicates the two sequences differ in length.
	ErrLengthMismatch = errors.New("columns differ in length")
	// ErrTooFewPairs indicates fewer than two complete (x, y) pairs remain.
	ErrTooFewPairs = errors.New("not enough complete pairs")
	// ErrTooManyColumns indicates a spreadsheet cell beyond the last column (XFD).
	ErrTooManyColumns = errors.New("cell reference beyond column limit")
	// ErrUnknownMethod indicates an unsupported correlation method identifier.
	ErrUnknownMethod = errors.New("unknown correlation method")
)

// FormatError reports an upload whose content does not fit its declared
// format, or a dataset that cannot feed the correlation flow.
type FormatError struct {
	Op   string
	Name string
	Err  error
}

func (e *FormatError) Error() string {
	if e == nil {
		return "format error"
	}
	if e.Name != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ComputationError reports degenerate statistical input.
type ComputationError struct {
	Method Method
	Err    error
}

func (e *ComputationError) Error() string {
	if e == nil {
		return "computation error"
	}
	return fmt.Sprintf("%s correlation: %v", e.Method, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// IsUserError reports whether err is one the user can fix by uploading a
// different file or changing the selection.
func IsUserError(err error) bool {
	var fe *FormatError
	var ce *ComputationError
	return errors.As(err, &fe) || errors.As(err, &ce)
}
