package ocr

import (
	"errors"
	"fmt"
)

// Common OCR extraction errors
var (
	// ErrMissingAPIKey is returned when the OCR.space provider is selected
	// without an API key configured.
	ErrMissingAPIKey = errors.New("missing OCR API key: set OCR_API_KEY environment variable")

	// ErrMissingCredentials is returned when a Google provider is selected
	// without GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrServiceUnavailable is returned when the OCR endpoint cannot be
	// reached (connection failure, timeout).
	ErrServiceUnavailable = errors.New("OCR service unavailable")

	// ErrBadStatus is returned when the OCR endpoint responds with a
	// non-2xx status code.
	ErrBadStatus = errors.New("OCR service returned non-success status")

	// ErrMalformedResponse is returned when the OCR endpoint's response
	// cannot be parsed.
	ErrMalformedResponse = errors.New("malformed OCR service response")

	// ErrEmptyPayload is returned when the submitted payload has no bytes.
	ErrEmptyPayload = errors.New("encoded payload is empty")
)

// OCRError wraps errors with additional context about the OCR extraction failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "ExtractText").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(op, err, details)
}
