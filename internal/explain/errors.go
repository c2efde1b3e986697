package explain

import (
	"errors"
	"fmt"
)

// Common analysis errors
var (
	// ErrMissingBaseURL is returned when the analyze provider is selected
	// without a base URL configured.
	ErrMissingBaseURL = errors.New("missing analysis base URL: set ANALYSIS_BASE_URL environment variable")

	// ErrMissingAPIKey is returned when the OpenAI provider is selected
	// without an API key configured.
	ErrMissingAPIKey = errors.New("missing OpenAI API key: set OPENAI_API_KEY environment variable")

	// ErrServiceUnavailable is returned when the analysis endpoint cannot
	// be reached.
	ErrServiceUnavailable = errors.New("analysis service unavailable")

	// ErrBadStatus is returned when the analysis endpoint responds with a
	// non-2xx status code.
	ErrBadStatus = errors.New("analysis service returned non-success status")

	// ErrMalformedResponse is returned when the analysis response cannot be
	// parsed.
	ErrMalformedResponse = errors.New("malformed analysis service response")
)

// ExplainError wraps errors with additional context about the analysis failure.
type ExplainError struct {
	Op      string
	Err     error
	Details string
}

func (e *ExplainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("explain: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("explain: %s failed: %v", e.Op, e.Err)
}

func (e *ExplainError) Unwrap() error {
	return e.Err
}

func (e *ExplainError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExplainError wraps an error as an ExplainError if it isn't already one.
func WrapExplainError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var exErr *ExplainError
	if errors.As(err, &exErr) {
		return err // Already wrapped
	}

	return &ExplainError{Op: op, Err: err, Details: details}
}
