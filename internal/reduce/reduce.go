// Package reduce shrinks a source image under a hard byte ceiling before it
// is submitted to a remote OCR service.
//
// The strategy is resize-once, then iterate on JPEG quality: the source is
// decoded, scaled down to a fixed baseline width a single time, and the
// already-resized image is re-encoded at monotonically decreasing quality
// until the encoded payload fits under the ceiling or the quality floor is
// reached. Iterating on quality alone keeps the loop cheap (no repeated
// scaling) and bounds it to a fixed maximum number of encodes.
//
// Byte sizes are always measured on the encoded JPEG output, never estimated
// from pixel counts, since JPEG compression ratios vary with content.
//
// When the quality floor is reached while the payload is still over the
// ceiling, the last candidate is returned with BestEffort set instead of
// failing; the caller decides whether an oversized submission is acceptable.
package reduce

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"snaplens/internal/logger"
	"snaplens/pkg/models"
)

const (
	// DefaultByteCeiling is the maximum payload size accepted by the OCR
	// service's free tier (1 MiB).
	DefaultByteCeiling = 1 << 20

	// DefaultBaselineWidth is the width candidates are resized to before the
	// quality loop starts.
	DefaultBaselineWidth = 1280

	// DefaultStartQuality is the initial JPEG quality (1-100 scale).
	DefaultStartQuality = 70

	// DefaultQualityFloor is the minimum JPEG quality attempted before the
	// reducer gives up and returns a best-effort payload.
	DefaultQualityFloor = 10

	// DefaultQualityStep is the per-iteration quality decrement.
	DefaultQualityStep = 10
)

// Options tunes the reduction loop. Zero fields fall back to the defaults.
type Options struct {
	BaselineWidth int
	StartQuality  int
	QualityFloor  int
	QualityStep   int
	ByteCeiling   int
}

// DefaultOptions returns the standard reduction parameters.
func DefaultOptions() Options {
	return Options{
		BaselineWidth: DefaultBaselineWidth,
		StartQuality:  DefaultStartQuality,
		QualityFloor:  DefaultQualityFloor,
		QualityStep:   DefaultQualityStep,
		ByteCeiling:   DefaultByteCeiling,
	}
}

// MaxEncodes returns the maximum number of JPEG encodes a single Reduce call
// can perform: the initial candidate plus one per quality step down to the
// floor.
func (o Options) MaxEncodes() int {
	if o.QualityStep <= 0 {
		return 1
	}
	return (o.StartQuality-o.QualityFloor)/o.QualityStep + 1
}

// Payload is a JPEG-encoded candidate produced by the reducer.
type Payload struct {
	// Data is the encoded JPEG.
	Data []byte

	// Quality is the JPEG quality the final candidate was encoded at.
	Quality int

	// Iterations counts quality-reduction re-encodes after the initial
	// candidate. Zero means the first candidate was already under the ceiling.
	Iterations int

	// Width and Height are the pixel dimensions of the encoded image.
	Width  int
	Height int

	// BestEffort is set when the quality floor was reached while the payload
	// still exceeded the ceiling.
	BestEffort bool
}

// Size returns the encoded byte length.
func (p *Payload) Size() int {
	return len(p.Data)
}

// Reducer produces bounded-size JPEG payloads from source images.
type Reducer struct {
	opts Options
	log  zerolog.Logger
}

// New creates a Reducer. Zero-valued options are replaced with defaults.
func New(opts Options) *Reducer {
	if opts.BaselineWidth <= 0 {
		opts.BaselineWidth = DefaultBaselineWidth
	}
	if opts.StartQuality <= 0 {
		opts.StartQuality = DefaultStartQuality
	}
	if opts.QualityFloor <= 0 {
		opts.QualityFloor = DefaultQualityFloor
	}
	if opts.QualityStep <= 0 {
		opts.QualityStep = DefaultQualityStep
	}
	if opts.ByteCeiling <= 0 {
		opts.ByteCeiling = DefaultByteCeiling
	}
	return &Reducer{
		opts: opts,
		log:  logger.WithComponent("reduce"),
	}
}

// Options returns the effective reduction parameters.
func (r *Reducer) Options() Options {
	return r.opts
}

// Reduce decodes the asset, resizes it once to the baseline width and
// re-encodes at decreasing quality until the payload fits under the byte
// ceiling or the quality floor is reached.
func (r *Reducer) Reduce(ctx context.Context, asset *models.ImageAsset) (*Payload, error) {
	const op = "Reduce"

	raw, err := asset.Bytes()
	if err != nil {
		return nil, WrapReduceError(op, err, "failed to load source bytes")
	}
	if len(raw) == 0 {
		return nil, WrapReduceError(op, ErrEmptyImage, asset.Name())
	}

	mtype := mimetype.Detect(raw)
	if !isSupportedMIME(mtype) {
		return nil, WrapReduceError(op, ErrUnsupportedFormat, mtype.String())
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, WrapReduceError(op, ErrDecodeFailed, err.Error())
	}

	resized := r.resizeToBaseline(src)
	bounds := resized.Bounds()

	r.log.Debug().
		Str("source", asset.Name()).
		Str("format", format).
		Int("source_bytes", len(raw)).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Msg("decoded and resized source image")

	quality := r.opts.StartQuality
	data, err := encodeJPEG(resized, quality)
	if err != nil {
		return nil, WrapReduceError(op, err, "initial candidate")
	}

	iterations := 0
	for len(data) > r.opts.ByteCeiling && quality-r.opts.QualityStep >= r.opts.QualityFloor {
		if err := ctx.Err(); err != nil {
			return nil, WrapReduceError(op, err, "canceled during quality loop")
		}

		quality -= r.opts.QualityStep
		next, err := encodeJPEG(resized, quality)
		if err != nil {
			return nil, WrapReduceError(op, err, "quality loop candidate")
		}
		iterations++

		r.log.Debug().
			Int("iteration", iterations).
			Int("quality", quality).
			Int("bytes", len(next)).
			Int("ceiling", r.opts.ByteCeiling).
			Msg("re-encoded candidate")

		data = next
	}

	payload := &Payload{
		Data:       data,
		Quality:    quality,
		Iterations: iterations,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		BestEffort: len(data) > r.opts.ByteCeiling,
	}

	if payload.BestEffort {
		r.log.Warn().
			Int("bytes", payload.Size()).
			Int("ceiling", r.opts.ByteCeiling).
			Int("quality", quality).
			Msg("quality floor reached with payload still over ceiling")
	} else {
		r.log.Info().
			Int("bytes", payload.Size()).
			Int("quality", quality).
			Int("iterations", iterations).
			Msg("reduction completed")
	}

	return payload, nil
}

// resizeToBaseline scales the image down to the baseline width, preserving
// aspect ratio. Images already at or below the baseline are returned as-is;
// the reducer never upscales.
func (r *Reducer) resizeToBaseline(src image.Image) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() <= r.opts.BaselineWidth {
		return src
	}

	scale := float64(r.opts.BaselineWidth) / float64(bounds.Dx())
	targetH := int(float64(bounds.Dy()) * scale)
	if targetH < 1 {
		targetH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.opts.BaselineWidth, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, WrapReduceError("encodeJPEG", ErrEncodeFailed, err.Error())
	}
	return buf.Bytes(), nil
}

func isSupportedMIME(mtype *mimetype.MIME) bool {
	for _, want := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		if mtype.Is(want) {
			return true
		}
	}
	return false
}
