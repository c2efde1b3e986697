// Package explain turns extracted document text into a simplified,
// plain-language explanation via a remote analysis service.
package explain

import "context"

// FallbackMessage is returned when the analysis service responds without a
// result. This is a successful-but-empty outcome, not an error.
const FallbackMessage = "No result from AI."

// Explainer produces a plain-language explanation of extracted text.
type Explainer interface {
	Explain(ctx context.Context, text string) (string, error)
}
