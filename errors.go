package blogapi

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested blog does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports caller input that violates a constraint.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError names the missing resource. It matches ErrNotFound with
// errors.Is.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Store operation names used in StoreError.
const (
	OpCount       = "count"
	OpList        = "list"
	OpSearch      = "search"
	OpGet         = "get"
	OpGetByTitle  = "get_by_title"
	OpLengthStats = "length_stats"
	OpTitles      = "titles"
	OpSummaries   = "summaries"
	OpPing        = "ping"
	OpInsert      = "insert"
)

// StoreError wraps a failure from the document store with the operation
// that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// storeErr wraps err in a StoreError unless it is nil or already a
// not-found or validation error.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	var ve *ValidationError
	if errors.Is(err, ErrNotFound) || errors.As(err, &se) || errors.As(err, &ve) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
