package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each validation failure kind. The detailed error
// types below unwrap to these.
var (
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrCountMismatch  = errors.New("count mismatch")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// EmptyDatasetError means the reference dataset's first column holds no
// non-null values, so nothing was written upstream.
type EmptyDatasetError struct {
	Column string
}

func (e *EmptyDatasetError) Error() string {
	if e.Column == "" {
		return "empty dataset: reference has no columns"
	}
	return fmt.Sprintf("empty dataset: no data available in column %q", e.Column)
}

func (e *EmptyDatasetError) Unwrap() error { return ErrEmptyDataset }

// CountMismatchError names the first column whose non-null counts differ.
type CountMismatchError struct {
	Column    string
	Reference int
	Candidate int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("count mismatch in column %q: reference has %d non-null values, candidate has %d",
		e.Column, e.Reference, e.Candidate)
}

func (e *CountMismatchError) Unwrap() error { return ErrCountMismatch }

// TypeMismatchError names the first column whose data does not conform to
// its declared type.
type TypeMismatchError struct {
	Column string
	Kind   Kind
	Reason string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch in column %q (declared %s): %s", e.Column, e.Kind, e.Reason)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// SchemaMismatchError lists columns present on only one side of a comparison.
type SchemaMismatchError struct {
	Missing    []string
	Unexpected []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns "+strings.Join(e.Unexpected, ", "))
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }
