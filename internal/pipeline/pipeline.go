// Package pipeline sequences the photo-to-explanation run: size reduction,
// OCR extraction, then analysis, with a single in-flight run at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"snaplens/internal/explain"
	"snaplens/internal/logger"
	"snaplens/internal/ocr"
	"snaplens/internal/reduce"
	"snaplens/pkg/models"
)

// ErrRunInProgress is returned when Run is invoked while another run is
// still in flight. Runs are strictly sequential; the caller must wait or use
// the event loop, which queues captures.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// User-facing notification messages.
const (
	NoTextMessage           = "No text detected in the image."
	ReductionFailedMessage  = "Could not process the image."
	ExtractionFailedMessage = "Text extraction failed. Please try again."
	AnalysisFailedMessage   = "Could not connect to the analysis service."
)

// Reducer produces a bounded-size encoded payload from a source image.
type Reducer interface {
	Reduce(ctx context.Context, asset *models.ImageAsset) (*reduce.Payload, error)
}

// StageError tags a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Report summarizes a completed run.
type Report struct {
	// RunID is a correlation identifier for logs.
	RunID string `json:"run_id"`

	// Seq is the monotonically increasing run sequence number.
	Seq uint64 `json:"seq"`

	// State is the terminal state of the run: Done or Failed.
	State State `json:"-"`

	// Text is the extracted text, empty when no text was detected.
	Text string `json:"text"`

	// Explanation is the analysis result, empty when the run stopped before
	// the explaining stage.
	Explanation string `json:"explanation,omitempty"`

	// PayloadBytes is the size of the encoded payload submitted to OCR.
	PayloadBytes int `json:"payload_bytes"`

	// Iterations is the number of quality-reduction iterations performed.
	Iterations int `json:"iterations"`

	// BestEffort is set when the payload was still over the ceiling at the
	// quality floor.
	BestEffort bool `json:"best_effort,omitempty"`

	// Duration is the total run time.
	Duration time.Duration `json:"duration"`
}

// Orchestrator sequences reducer, extractor and explainer over a single
// current-run slot.
type Orchestrator struct {
	reducer   Reducer
	extractor ocr.TextExtractor
	explainer explain.Explainer
	notifier  Notifier
	log       zerolog.Logger

	mu    sync.Mutex
	state State

	// seq tags runs; only the run whose tag still matches publishes its
	// results, so an abandoned run resolves silently.
	seq atomic.Uint64
}

// New creates an Orchestrator. A nil notifier is replaced by NopNotifier.
func New(reducer Reducer, extractor ocr.TextExtractor, explainer explain.Explainer, notifier Notifier) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Orchestrator{
		reducer:   reducer,
		extractor: extractor,
		explainer: explainer,
		notifier:  notifier,
		state:     StateIdle,
		log:       logger.WithComponent("pipeline"),
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Abandon invalidates the in-flight run, if any: its eventual results are
// discarded instead of being published to the notifier.
func (o *Orchestrator) Abandon() {
	o.seq.Add(1)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one full pipeline pass: reduce, extract, and, when text was
// found, explain. A second Run while one is in flight returns
// ErrRunInProgress. On return the orchestrator is immediately eligible for a
// new run.
func (o *Orchestrator) Run(ctx context.Context, asset *models.ImageAsset) (*Report, error) {
	o.mu.Lock()
	if o.state.Busy() {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.state = StateReducing
	o.mu.Unlock()

	seq := o.seq.Add(1)
	runID := uuid.NewString()
	log := o.log.With().Str("run_id", runID).Uint64("seq", seq).Logger()
	startTime := time.Now()

	// current reports whether this run is still the latest; stale runs keep
	// executing but stop publishing.
	current := func() bool { return o.seq.Load() == seq }

	defer o.setState(StateIdle)
	defer o.notifier.SetBusy(false)

	o.notifier.SetBusy(true)
	if current() {
		o.notifier.ShowPreview(asset)
	}

	report := &Report{RunID: runID, Seq: seq}

	fail := func(stage State, err error, message string) (*Report, error) {
		log.Error().Err(err).Str("stage", stage.String()).Msg("pipeline stage failed")
		if current() {
			o.notifier.Notify(NoticeError, message)
		}
		report.State = StateFailed
		report.Duration = time.Since(startTime)
		return report, &StageError{Stage: stage, Err: err}
	}

	log.Info().Str("source", asset.Name()).Int64("source_bytes", asset.Size).Msg("pipeline run started")

	// Stage 1: size reduction
	payload, err := o.reducer.Reduce(ctx, asset)
	if err != nil {
		return fail(StateReducing, err, ReductionFailedMessage)
	}
	report.PayloadBytes = payload.Size()
	report.Iterations = payload.Iterations
	report.BestEffort = payload.BestEffort

	// Stage 2: text extraction
	o.setState(StateExtractingText)
	ocrResult, err := o.extractor.ExtractText(ctx, payload)
	if err != nil {
		return fail(StateExtractingText, err, ExtractionFailedMessage)
	}
	report.Text = ocrResult.Text

	// Empty text is a terminal non-error outcome: report it and stop before
	// the analysis stage.
	if ocrResult.Empty() {
		log.Info().Msg("no text detected, skipping analysis")
		if current() {
			o.notifier.Notify(NoticeInfo, NoTextMessage)
		}
		report.State = StateDone
		report.Duration = time.Since(startTime)
		return report, nil
	}

	if current() {
		o.notifier.ShowText(ocrResult.Text)
	}

	// Stage 3: analysis
	o.setState(StateExplaining)
	explanation, err := o.explainer.Explain(ctx, ocrResult.Text)
	if err != nil {
		return fail(StateExplaining, err, AnalysisFailedMessage)
	}
	report.Explanation = explanation

	if current() {
		o.notifier.ShowExplanation(explanation)
	}

	report.State = StateDone
	report.Duration = time.Since(startTime)

	log.Info().
		Int("payload_bytes", report.PayloadBytes).
		Int("iterations", report.Iterations).
		Int("text_length", len(report.Text)).
		Int("explanation_length", len(report.Explanation)).
		Dur("duration", report.Duration).
		Msg("pipeline run completed")

	return report, nil
}
