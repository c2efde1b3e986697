package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplens/internal/explain"
	"snaplens/internal/ocr"
	"snaplens/internal/pipeline"
	"snaplens/internal/reduce"
	"snaplens/pkg/models"
)

type fakeReducer struct {
	payload *reduce.Payload
	err     error
}

func (f *fakeReducer) Reduce(ctx context.Context, asset *models.ImageAsset) (*reduce.Payload, error) {
	return f.payload, f.err
}

type fakeExtractor struct {
	result  *ocr.Result
	err     error
	calls   atomic.Int32
	started chan struct{} // closed-once signal that extraction began
	release chan struct{} // when non-nil, extraction blocks until closed
}

func (f *fakeExtractor) ExtractText(ctx context.Context, payload *reduce.Payload) (*ocr.Result, error) {
	if f.calls.Add(1) == 1 && f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeExplainer struct {
	explanation string
	err         error
	calls       atomic.Int32
}

func (f *fakeExplainer) Explain(ctx context.Context, text string) (string, error) {
	f.calls.Add(1)
	return f.explanation, f.err
}

type notice struct {
	kind    pipeline.NoticeKind
	message string
}

type recordingNotifier struct {
	mu           sync.Mutex
	busy         []bool
	texts        []string
	explanations []string
	notices      []notice
}

func (n *recordingNotifier) ShowPreview(*models.ImageAsset) {}

func (n *recordingNotifier) ShowText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func (n *recordingNotifier) ShowExplanation(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.explanations = append(n.explanations, text)
}

func (n *recordingNotifier) SetBusy(busy bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.busy = append(n.busy, busy)
}

func (n *recordingNotifier) Notify(kind pipeline.NoticeKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{kind: kind, message: message})
}

func (n *recordingNotifier) snapshot() recordingNotifier {
	n.mu.Lock()
	defer n.mu.Unlock()
	return recordingNotifier{
		busy:         append([]bool(nil), n.busy...),
		texts:        append([]string(nil), n.texts...),
		explanations: append([]string(nil), n.explanations...),
		notices:      append([]notice(nil), n.notices...),
	}
}

func testAsset() *models.ImageAsset {
	return models.FromBytes([]byte("source-image"))
}

func okPayload() *reduce.Payload {
	return &reduce.Payload{Data: []byte("jpeg"), Quality: 70, Iterations: 1}
}

func TestRunHappyPath(t *testing.T) {
	notifier := &recordingNotifier{}
	explainer := &fakeExplainer{explanation: "This is an invoice reference."}
	orch := pipeline.New(
		&fakeReducer{payload: okPayload()},
		&fakeExtractor{result: &ocr.Result{Text: "Invoice #123"}},
		explainer,
		notifier,
	)

	report, err := orch.Run(context.Background(), testAsset())
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, report.State)
	assert.Equal(t, "Invoice #123", report.Text)
	assert.Equal(t, "This is an invoice reference.", report.Explanation)
	assert.Equal(t, 1, report.Iterations)
	assert.Equal(t, int32(1), explainer.calls.Load())
	assert.Equal(t, pipeline.StateIdle, orch.State(), "orchestrator must be eligible for a new run")

	got := notifier.snapshot()
	assert.Equal(t, []string{"Invoice #123"}, got.texts)
	assert.Equal(t, []string{"This is an invoice reference."}, got.explanations)
	require.NotEmpty(t, got.busy)
	assert.True(t, got.busy[0], "busy must be raised at run start")
	assert.False(t, got.busy[len(got.busy)-1], "busy must clear when the run ends")
}

func TestRunNoTextSkipsExplainer(t *testing.T) {
	notifier := &recordingNotifier{}
	explainer := &fakeExplainer{explanation: "should never be produced"}
	orch := pipeline.New(
		&fakeReducer{payload: okPayload()},
		&fakeExtractor{result: &ocr.Result{Text: ""}},
		explainer,
		notifier,
	)

	report, err := orch.Run(context.Background(), testAsset())
	require.NoError(t, err, "no text detected is a successful run")

	assert.Equal(t, pipeline.StateDone, report.State)
	assert.Empty(t, report.Text)
	assert.Empty(t, report.Explanation)
	assert.Equal(t, int32(0), explainer.calls.Load(), "explainer must not run on empty text")

	got := notifier.snapshot()
	require.Len(t, got.notices, 1)
	assert.Equal(t, pipeline.NoticeInfo, got.notices[0].kind)
	assert.Equal(t, pipeline.NoTextMessage, got.notices[0].message)
	assert.Empty(t, got.texts)
}

func TestRunExtractionFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	explainer := &fakeExplainer{}
	extractErr := ocr.NewOCRError("ExtractText", ocr.ErrServiceUnavailable, "connection refused")
	orch := pipeline.New(
		&fakeReducer{payload: okPayload()},
		&fakeExtractor{err: extractErr},
		explainer,
		notifier,
	)

	report, err := orch.Run(context.Background(), testAsset())
	require.Error(t, err)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.StateExtractingText, stageErr.Stage)
	assert.ErrorIs(t, err, ocr.ErrServiceUnavailable)

	assert.Equal(t, pipeline.StateFailed, report.State)
	assert.Equal(t, int32(0), explainer.calls.Load())
	assert.Equal(t, pipeline.StateIdle, orch.State())

	got := notifier.snapshot()
	require.Len(t, got.notices, 1)
	assert.Equal(t, pipeline.NoticeError, got.notices[0].kind)
	assert.Equal(t, pipeline.ExtractionFailedMessage, got.notices[0].message)
	require.NotEmpty(t, got.busy)
	assert.False(t, got.busy[len(got.busy)-1], "busy must clear on failure")
}

func TestRunReductionFailureStopsBeforeOCR(t *testing.T) {
	extractor := &fakeExtractor{result: &ocr.Result{Text: "unreachable"}}
	orch := pipeline.New(
		&fakeReducer{err: errors.New("corrupt input")},
		extractor,
		&fakeExplainer{},
		&recordingNotifier{},
	)

	report, err := orch.Run(context.Background(), testAsset())
	require.Error(t, err)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.StateReducing, stageErr.Stage)
	assert.Equal(t, pipeline.StateFailed, report.State)
	assert.Equal(t, int32(0), extractor.calls.Load(), "OCR must not be attempted after a reduction failure")
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	extractor := &fakeExtractor{
		result:  &ocr.Result{Text: "slow"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch := pipeline.New(
		&fakeReducer{payload: okPayload()},
		extractor,
		&fakeExplainer{explanation: "ok"},
		&recordingNotifier{},
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Run(context.Background(), testAsset())
	}()

	<-extractor.started

	_, err := orch.Run(context.Background(), testAsset())
	assert.ErrorIs(t, err, pipeline.ErrRunInProgress)

	close(extractor.release)
	<-done

	// After completion a new run is accepted again.
	extractor.release = nil
	_, err = orch.Run(context.Background(), testAsset())
	assert.NoError(t, err)
}

func TestAbandonSuppressesPublication(t *testing.T) {
	notifier := &recordingNotifier{}
	extractor := &fakeExtractor{
		result:  &ocr.Result{Text: "stale text"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch := pipeline.New(
		&fakeReducer{payload: okPayload()},
		extractor,
		&fakeExplainer{explanation: "stale explanation"},
		notifier,
	)

	type outcome struct {
		report *pipeline.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := orch.Run(context.Background(), testAsset())
		done <- outcome{report: report, err: err}
	}()

	<-extractor.started
	orch.Abandon()
	close(extractor.release)
	res := <-done
	require.NoError(t, res.err)
	report := res.report

	// The run itself still resolves, but nothing reaches the display.
	assert.Equal(t, pipeline.StateDone, report.State)
	assert.Equal(t, "stale text", report.Text)

	got := notifier.snapshot()
	assert.Empty(t, got.texts, "abandoned run must not publish extracted text")
	assert.Empty(t, got.explanations, "abandoned run must not publish an explanation")
	assert.Empty(t, got.notices)
}

func TestEventLoopRunsOncePerCapture(t *testing.T) {
	notifier := &recordingNotifier{}
	extractor := &fakeExtractor{result: &ocr.Result{Text: "captured text"}}
	orch := pipeline.New(
		&fakeReducer{payload: okPayload()},
		extractor,
		&fakeExplainer{explanation: "captured explanation"},
		notifier,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := orch.Start(ctx)
	events <- pipeline.CaptureEvent{Asset: testAsset(), Source: pipeline.SourceCamera}
	events <- pipeline.CaptureEvent{Asset: testAsset(), Source: pipeline.SourceLibrary}

	require.Eventually(t, func() bool {
		return len(notifier.snapshot().explanations) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(2), extractor.calls.Load(), "each capture event triggers exactly one run")
}

// TestEndToEnd drives the real reducer and real HTTP clients against stub
// OCR and analysis servers.
func TestEndToEnd(t *testing.T) {
	ocrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ParsedResults":[{"ParsedText":"Invoice #123"}]}`))
	}))
	defer ocrServer.Close()

	analyzeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"This is an invoice reference."}`))
	}))
	defer analyzeServer.Close()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 230, G: 230, B: 230, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	notifier := &recordingNotifier{}
	orch := pipeline.New(
		reduce.New(reduce.DefaultOptions()),
		ocr.NewOCRSpaceClientWithHTTPClient("test-key", ocrServer.URL, ocrServer.Client()),
		explain.NewAnalyzeClientWithHTTPClient(analyzeServer.URL, analyzeServer.Client()),
		notifier,
	)

	report, err := orch.Run(context.Background(), models.FromBytes(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, report.State)
	assert.Equal(t, "Invoice #123", report.Text)
	assert.Equal(t, "This is an invoice reference.", report.Explanation)
	assert.LessOrEqual(t, report.PayloadBytes, reduce.DefaultByteCeiling)
	assert.Equal(t, 0, report.Iterations, "a small image needs no quality reduction")

	got := notifier.snapshot()
	assert.Equal(t, []string{"Invoice #123"}, got.texts)
	assert.Equal(t, []string{"This is an invoice reference."}, got.explanations)
}
