// Package imaging prepares user-submitted photographs for the remote
// diagnostic service: decode, aspect-preserving downscale, optional
// sharpening, and re-encode under size and quality constraints.
package imaging

import (
	"context"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/c360/cropvision/errors"
	"github.com/c360/cropvision/metric"
)

// Default bounds and tuning for optimization.
const (
	DefaultMaxWidth         = 1920
	DefaultMaxHeight        = 1920
	DefaultBatchConcurrency = 3

	thumbnailQuality = 75
)

// Metadata describes a raster blob.
type Metadata struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	ByteSize int    `json:"byte_size"`
	Format   Format `json:"format"`

	// MetadataStripped reports whether the blob is free of embedded
	// metadata blocks. True for transcoder output (the encoders write
	// none), best-effort for unmodified input.
	MetadataStripped bool `json:"metadata_stripped"`
}

// Result is the outcome of one optimization.
type Result struct {
	Blob     []byte   `json:"-"`
	Metadata Metadata `json:"metadata"`

	// CompressionRatio is original bytes over transcoded bytes; always
	// positive, above 1 when optimization shrank the blob.
	CompressionRatio float64 `json:"compression_ratio"`
}

// BatchResult pairs one batch input with its outcome. Exactly one of Result
// and Err is set.
type BatchResult struct {
	Result *Result
	Err    error
}

// Options control one optimization. Zero values select defaults: bounds of
// DefaultMaxWidth/DefaultMaxHeight, quality by input-size heuristic, JPEG
// output, sharpening decided by the transcoder.
type Options struct {
	MaxWidth  int
	MaxHeight int

	// Quality in [1,100]; 0 selects by input size (larger input, lower
	// quality).
	Quality int

	Format Format

	// Sharpen forces the unsharp pass on (or off) instead of letting the
	// transcoder decide.
	Sharpen *bool
}

// withDefaults resolves zero-valued fields.
func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.Format == "" {
		o.Format = FormatJPEG
	}
	return o
}

// Transcoder resizes, sharpens, and re-encodes raster blobs through a Codec.
// Safe for concurrent use.
type Transcoder struct {
	codec       Codec
	logger      *slog.Logger
	metrics     *metric.Metrics
	concurrency int
}

// TranscoderOption configures a Transcoder.
type TranscoderOption func(*Transcoder)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) TranscoderOption {
	return func(t *Transcoder) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics enables core pipeline metrics recording.
func WithMetrics(metrics *metric.Metrics) TranscoderOption {
	return func(t *Transcoder) {
		t.metrics = metrics
	}
}

// WithBatchConcurrency sets the concurrency ceiling for BatchOptimize.
func WithBatchConcurrency(n int) TranscoderOption {
	return func(t *Transcoder) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// NewTranscoder creates a transcoder over the given codec. A nil codec
// selects StdCodec.
func NewTranscoder(codec Codec, opts ...TranscoderOption) *Transcoder {
	if codec == nil {
		codec = StdCodec{}
	}
	t := &Transcoder{
		codec:       codec,
		logger:      slog.Default(),
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Optimize decodes blob, downscales it to fit the configured bounds while
// preserving aspect ratio (never upscaling), optionally sharpens, and
// re-encodes at the resolved quality. On failure the error is classified as
// a decode or encode failure; the transcoder never substitutes the original
// blob silently — that decision belongs to the caller.
func (t *Transcoder) Optimize(ctx context.Context, blob []byte, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTimeout(err, "Transcoder", "Optimize", "context check")
	}

	opts = opts.withDefaults()
	start := time.Now()

	img, srcFormat, err := t.codec.Decode(blob)
	if err != nil {
		if t.metrics != nil {
			t.metrics.RecordOptimization("decode_failure")
		}
		return nil, err
	}

	srcBounds := img.Bounds()
	targetW, targetH := fitWithin(srcBounds.Dx(), srcBounds.Dy(), opts.MaxWidth, opts.MaxHeight)
	downscaled := targetW < srcBounds.Dx() || targetH < srcBounds.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, srcBounds, draw.Src, nil)

	if t.shouldSharpen(opts, downscaled) {
		rgba = sharpen(rgba)
	}

	quality := opts.Quality
	if quality == 0 {
		quality = qualityForSize(len(blob))
	}

	encoded, err := t.codec.Encode(rgba, opts.Format, quality)
	if err != nil {
		if t.metrics != nil {
			t.metrics.RecordOptimization("encode_failure")
		}
		return nil, err
	}

	result := &Result{
		Blob: encoded,
		Metadata: Metadata{
			Width:            targetW,
			Height:           targetH,
			ByteSize:         len(encoded),
			Format:           opts.Format,
			MetadataStripped: true,
		},
		CompressionRatio: float64(len(blob)) / float64(len(encoded)),
	}

	if t.metrics != nil {
		t.metrics.RecordOptimization("success")
		t.metrics.RecordOptimizationDuration(string(opts.Format), time.Since(start))
		t.metrics.RecordBytesSaved(int64(len(blob) - len(encoded)))
	}

	t.logger.Debug("optimized image",
		"source_format", string(srcFormat),
		"format", string(opts.Format),
		"dimensions", image.Pt(targetW, targetH).String(),
		"original_size", humanize.Bytes(uint64(len(blob))),
		"optimized_size", humanize.Bytes(uint64(len(encoded))),
		"quality", quality,
		"duration", time.Since(start))

	return result, nil
}

// BatchOptimize processes blobs with a bounded concurrency ceiling. The
// returned slice has one entry per input in input order; a per-item failure
// produces an error entry instead of aborting the batch.
func (t *Transcoder) BatchOptimize(ctx context.Context, blobs [][]byte, opts Options) []BatchResult {
	results := make([]BatchResult, len(blobs))

	g := new(errgroup.Group)
	g.SetLimit(t.concurrency)

	for i, blob := range blobs {
		i, blob := i, blob
		g.Go(func() error {
			res, err := t.Optimize(ctx, blob, opts)
			// Failures are isolated per item; the group error is never set.
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// CreateThumbnail produces a small preview bounded by maxSize on both axes
// at moderate quality.
func (t *Transcoder) CreateThumbnail(ctx context.Context, blob []byte, maxSize int) (*Result, error) {
	if maxSize <= 0 {
		maxSize = 256
	}
	return t.Optimize(ctx, blob, Options{
		MaxWidth:  maxSize,
		MaxHeight: maxSize,
		Quality:   thumbnailQuality,
		Format:    FormatJPEG,
	})
}

// Metadata inspects a blob without a full decode or re-encode.
func (t *Transcoder) Metadata(blob []byte) (*Metadata, error) {
	width, height, format, err := t.codec.DecodeConfig(blob)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Width:    width,
		Height:   height,
		ByteSize: len(blob),
		Format:   format,
		// Unmodified input: formats that cannot carry embedded metadata
		// are effectively stripped already.
		MetadataStripped: !format.carriesEmbeddedMetadata(),
	}, nil
}

// shouldSharpen decides whether the unsharp pass runs. Explicit caller
// choice wins; otherwise sharpen only when downscaling blurred a lossy
// output.
func (t *Transcoder) shouldSharpen(opts Options, downscaled bool) bool {
	if opts.Sharpen != nil {
		return *opts.Sharpen
	}
	return downscaled && opts.Format == FormatJPEG
}

// fitWithin computes target dimensions that fit (maxW, maxH) while
// preserving the source aspect ratio. Scale-down only: a source that
// already fits keeps its exact dimensions.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	targetW := int(math.Round(float64(w) * scale))
	targetH := int(math.Round(float64(h) * scale))

	// Rounding may push one axis a pixel over the bound.
	if targetW > maxW {
		targetW = maxW
	}
	if targetH > maxH {
		targetH = maxH
	}
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}
	return targetW, targetH
}

// qualityForSize selects JPEG quality by input size: larger inputs compress
// harder since they have detail to spare.
func qualityForSize(size int) int {
	const mib = 1 << 20
	switch {
	case size > 4*mib:
		return 60
	case size > 2*mib:
		return 70
	case size > 1*mib:
		return 78
	default:
		return 85
	}
}
