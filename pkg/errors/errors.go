// Package errors defines the sentinel errors shared across the indexer and
// helpers for wrapping them with context.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeNotFound means a document type shortname has no registry entry.
	// Construction-time and fatal: missing types are never created implicitly.
	ErrTypeNotFound = errors.New("document type not found")
	// ErrStoreFailure covers any keyword store failure during commit. The
	// commit transaction is rolled back and the accumulator kept for retry.
	ErrStoreFailure = errors.New("keyword store failure")
	// ErrSpellCheck marks spell-assist collaborator failures. Non-fatal:
	// reported but never interrupts indexing.
	ErrSpellCheck = errors.New("spell check failure")
	// ErrInvalidEvent means an ingest event could not be decoded or is
	// missing required fields.
	ErrInvalidEvent = errors.New("invalid ingest event")
)

// AppError pairs a sentinel with a human-readable message so callers can
// branch with errors.Is while logs stay descriptive.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel with a message.
func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

// Newf wraps a sentinel with a formatted message.
func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}
