// Package optimerr is the structured error type used throughout imageoptim.
package optimerr

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryConfig        Category = "config"
	CategoryBinaryMissing Category = "binary_not_found"
	CategoryBadVersion    Category = "bad_version"
	CategoryFormat        Category = "format_unsupported"
	CategoryWorker        Category = "worker_failure"
	CategoryIO            Category = "io"
	CategoryCancelled     Category = "cancelled"
)

// OptimError is the structured error type returned across package
// boundaries. Category drives handling policy (fatal vs. logged-and-skipped);
// Op names the operation that produced it.
type OptimError struct {
	Category  Category
	Op        string
	Err       error
	Retryable bool
}

func (e *OptimError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *OptimError) Unwrap() error { return e.Err }

// New creates a non-retryable OptimError.
func New(category Category, op string, err error) *OptimError {
	return &OptimError{Category: category, Op: op, Err: err}
}

// Wrap wraps err with context, or returns nil if err is nil.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// Transient creates a retryable OptimError, for failures the caller's retry
// policy (engine.invokeWithRetry) should attempt again: a worker process
// that times out or is killed by a transient signal, as opposed to a
// configuration error or a binary that will never resolve.
func Transient(category Category, op string, err error) *OptimError {
	return &OptimError{Category: category, Op: op, Err: err, Retryable: true}
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var oe *OptimError
	if errors.As(err, &oe) {
		return oe.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var oe *OptimError
	if errors.As(err, &oe) {
		return oe.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrBinaryNotFound   = errors.New("binary not found on PATH or vendored bin dir")
	ErrBadVersion       = errors.New("binary version below worker's declared minimum")
	ErrUnknownWorker    = errors.New("unknown worker class")
	ErrUnknownOption    = errors.New("unknown option")
	ErrBadOptionType    = errors.New("option value does not match declared type")
	ErrFormatUnknown    = errors.New("input is not a recognized image format")
	ErrEmptyInput       = errors.New("empty input")
	ErrCrossDevice      = errors.New("replace target is on a different filesystem")
	ErrCancelled        = errors.New("operation cancelled")
	ErrWorkerPoolClosed = errors.New("worker pool is shut down")
)
