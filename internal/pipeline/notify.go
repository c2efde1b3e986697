package pipeline

import "snaplens/pkg/models"

// NoticeKind distinguishes informational notices from failures.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

func (k NoticeKind) String() string {
	if k == NoticeError {
		return "error"
	}
	return "info"
}

// Notifier is the display collaborator: whatever surface (CLI, UI binding)
// presents pipeline progress and outcomes to the user. Implementations must
// be cheap; they are called synchronously from the run.
type Notifier interface {
	// ShowPreview receives the source image for display before processing.
	ShowPreview(asset *models.ImageAsset)

	// ShowText receives the extracted text of a completed extraction stage.
	ShowText(text string)

	// ShowExplanation receives the final explanation string.
	ShowExplanation(text string)

	// SetBusy signals whether a run is in flight. It is always called with
	// false before a run finishes, whatever the outcome.
	SetBusy(busy bool)

	// Notify delivers a user-facing alert: "no text detected", extraction
	// failure, analysis failure.
	Notify(kind NoticeKind, message string)
}

// NopNotifier discards all display callbacks.
type NopNotifier struct{}

func (NopNotifier) ShowPreview(*models.ImageAsset) {}
func (NopNotifier) ShowText(string)                {}
func (NopNotifier) ShowExplanation(string)         {}
func (NopNotifier) SetBusy(bool)                   {}
func (NopNotifier) Notify(NoticeKind, string)      {}
