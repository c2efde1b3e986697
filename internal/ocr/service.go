// Package ocr extracts text from photographed documents via remote OCR
// services.
//
// The primary provider is OCR.space's parse/image endpoint, which accepts a
// base64 data-URI JPEG in a multipart form and returns parsed text as JSON.
// Google Cloud Vision and Google Document AI are available as alternative
// providers behind the same TextExtractor interface, selected by
// configuration.
//
// An empty extraction result is not an error: it is the "no text detected"
// outcome, and it is the caller's job to short-circuit the pipeline there.
//
// Provider limits:
//   - OCR.space free tier caps payloads at 1 MB, which is why the size
//     reducer targets that ceiling before submission.
//   - Cloud Vision and Document AI accept inline images up to 20MB.
package ocr

import (
	"context"
	"time"

	"snaplens/internal/reduce"
)

// TextExtractor defines the interface for OCR text extraction services.
type TextExtractor interface {
	// ExtractText extracts text from an encoded image payload. An empty
	// Result.Text with a nil error means the image contained no readable
	// text.
	ExtractText(ctx context.Context, payload *reduce.Payload) (*Result, error)
}

// Result contains the outcome of a single OCR extraction.
type Result struct {
	// Text is the extracted text, whitespace-trimmed. Empty means no text
	// was detected.
	Text string `json:"text"`

	// Provider identifies which OCR backend produced the result.
	Provider string `json:"provider"`

	// ProcessedAt is the timestamp when the extraction completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the extraction took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Empty reports whether the extraction found no text.
func (r *Result) Empty() bool {
	return r.Text == ""
}
