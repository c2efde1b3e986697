package reduce

import (
	"errors"
	"fmt"
)

// Common reduction errors
var (
	// ErrUnsupportedFormat is returned when the source bytes are not a
	// supported image format (JPEG, PNG, GIF, WebP).
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecodeFailed is returned when the source image cannot be decoded.
	ErrDecodeFailed = errors.New("failed to decode source image")

	// ErrEncodeFailed is returned when JPEG encoding of a candidate fails.
	ErrEncodeFailed = errors.New("failed to encode JPEG candidate")

	// ErrEmptyImage is returned when the source asset contains no bytes.
	ErrEmptyImage = errors.New("source image is empty")
)

// ReduceError wraps errors with additional context about the reduction failure.
type ReduceError struct {
	// Op is the operation that failed (e.g., "Reduce", "decode").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ReduceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("reduce: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("reduce: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ReduceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ReduceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapReduceError wraps an error as a ReduceError if it isn't already one.
func WrapReduceError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var redErr *ReduceError
	if errors.As(err, &redErr) {
		return err // Already wrapped
	}

	return &ReduceError{Op: op, Err: err, Details: details}
}
