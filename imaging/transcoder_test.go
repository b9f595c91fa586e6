package imaging

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cropvision/errors"
)

// testImage builds a gradient image so the encoders have real detail to
// work with.
func testImage(t *testing.T, width, height int) image.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 5) % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func encodeTestImage(t *testing.T, width, height int, format Format) []byte {
	t.Helper()
	blob, err := StdCodec{}.Encode(testImage(t, width, height), format, 90)
	require.NoError(t, err)
	return blob
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		maxW, maxH int
		wantW      int
		wantH      int
	}{
		{"already fits", 800, 600, 1920, 1920, 800, 600},
		{"exact fit", 1920, 1920, 1920, 1920, 1920, 1920},
		{"landscape downscale", 4000, 3000, 1920, 1920, 1920, 1440},
		{"portrait downscale", 3000, 4000, 1920, 1920, 1440, 1920},
		{"wide panorama", 8000, 1000, 1920, 1920, 1920, 240},
		{"no upscale of small input", 100, 80, 1920, 1920, 100, 80},
		{"extreme ratio clamps to one pixel", 10000, 2, 1920, 1920, 1920, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := fitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, gotW)
			assert.Equal(t, tt.wantH, gotH)
			assert.LessOrEqual(t, gotW, tt.maxW)
			assert.LessOrEqual(t, gotH, tt.maxH)
		})
	}
}

func TestFitWithin_PreservesAspectRatio(t *testing.T) {
	gotW, gotH := fitWithin(4032, 3024, 1920, 1920)
	srcRatio := float64(4032) / float64(3024)
	gotRatio := float64(gotW) / float64(gotH)
	assert.InDelta(t, srcRatio, gotRatio, 0.01)
}

func TestQualityForSize(t *testing.T) {
	const mib = 1 << 20
	tests := []struct {
		size int
		want int
	}{
		{5 * mib, 60},
		{4*mib + 1, 60},
		{3 * mib, 70},
		{2 * mib, 70}, // boundary belongs to the lower band
		{1*mib + 1, 78},
		{512 * 1024, 85},
		{0, 85},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, qualityForSize(tt.size), "size %d", tt.size)
	}
}

func TestTranscoder_Optimize_Downscales(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 800, 600, FormatJPEG)

	result, err := tr.Optimize(context.Background(), blob, Options{
		MaxWidth:  400,
		MaxHeight: 400,
	})
	require.NoError(t, err)

	assert.Equal(t, 400, result.Metadata.Width)
	assert.Equal(t, 300, result.Metadata.Height)
	assert.Equal(t, FormatJPEG, result.Metadata.Format)
	assert.True(t, result.Metadata.MetadataStripped)
	assert.Equal(t, len(result.Blob), result.Metadata.ByteSize)
	assert.Positive(t, result.CompressionRatio)

	// The output must be decodable at the reported dimensions.
	w, h, format, err := StdCodec{}.DecodeConfig(result.Blob)
	require.NoError(t, err)
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)
	assert.Equal(t, FormatJPEG, format)
}

func TestTranscoder_Optimize_NeverUpscales(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 120, 90, FormatPNG)

	result, err := tr.Optimize(context.Background(), blob, Options{
		MaxWidth:  1920,
		MaxHeight: 1920,
		Format:    FormatPNG,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, result.Metadata.Width)
	assert.Equal(t, 90, result.Metadata.Height)
}

func TestTranscoder_Optimize_FormatConversion(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 200, 200, FormatPNG)

	result, err := tr.Optimize(context.Background(), blob, Options{Format: FormatJPEG})
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, result.Metadata.Format)

	_, _, format, err := StdCodec{}.DecodeConfig(result.Blob)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)
}

func TestTranscoder_Optimize_DecodeFailure(t *testing.T) {
	tr := NewTranscoder(nil)

	_, err := tr.Optimize(context.Background(), []byte("not an image"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsDecode(err))
}

func TestTranscoder_Optimize_UnsupportedOutputFormat(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 50, 50, FormatJPEG)

	_, err := tr.Optimize(context.Background(), blob, Options{Format: Format("tiff")})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestTranscoder_Optimize_CancelledContext(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 50, 50, FormatJPEG)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Optimize(ctx, blob, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestTranscoder_Optimize_SharpenOverride(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 400, 300, FormatJPEG)

	off := false
	result, err := tr.Optimize(context.Background(), blob, Options{
		MaxWidth:  200,
		MaxHeight: 200,
		Sharpen:   &off,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Metadata.Width)
}

func TestTranscoder_BatchOptimize(t *testing.T) {
	tr := NewTranscoder(nil)

	blobs := [][]byte{
		encodeTestImage(t, 300, 200, FormatJPEG),
		[]byte("corrupt"),
		encodeTestImage(t, 200, 300, FormatJPEG),
	}

	results := tr.BatchOptimize(context.Background(), blobs, Options{
		MaxWidth:  100,
		MaxHeight: 100,
	})
	require.Len(t, results, 3)

	// Results keep input order and isolate the per-item failure.
	require.NoError(t, results[0].Err)
	assert.Equal(t, 100, results[0].Result.Metadata.Width)

	require.Error(t, results[1].Err)
	assert.True(t, errors.IsDecode(results[1].Err))
	assert.Nil(t, results[1].Result)

	require.NoError(t, results[2].Err)
	assert.Equal(t, 100, results[2].Result.Metadata.Height)
}

func TestTranscoder_BatchOptimize_Empty(t *testing.T) {
	tr := NewTranscoder(nil)
	results := tr.BatchOptimize(context.Background(), nil, Options{})
	assert.Empty(t, results)
}

func TestTranscoder_CreateThumbnail(t *testing.T) {
	tr := NewTranscoder(nil)
	blob := encodeTestImage(t, 1000, 800, FormatJPEG)

	result, err := tr.CreateThumbnail(context.Background(), blob, 150)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Metadata.Width, 150)
	assert.LessOrEqual(t, result.Metadata.Height, 150)
	assert.Equal(t, 150, result.Metadata.Width)
}

func TestTranscoder_Metadata(t *testing.T) {
	tr := NewTranscoder(nil)

	jpegBlob := encodeTestImage(t, 320, 240, FormatJPEG)
	meta, err := tr.Metadata(jpegBlob)
	require.NoError(t, err)
	assert.Equal(t, 320, meta.Width)
	assert.Equal(t, 240, meta.Height)
	assert.Equal(t, FormatJPEG, meta.Format)
	assert.Equal(t, len(jpegBlob), meta.ByteSize)
	// JPEG can carry EXIF blocks; unmodified input is not known stripped.
	assert.False(t, meta.MetadataStripped)

	pngBlob := encodeTestImage(t, 64, 64, FormatPNG)
	meta, err = tr.Metadata(pngBlob)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, meta.Format)
	assert.True(t, meta.MetadataStripped)
}

func TestTranscoder_Metadata_Invalid(t *testing.T) {
	tr := NewTranscoder(nil)
	_, err := tr.Metadata([]byte{0x00, 0x01})
	require.Error(t, err)
	assert.True(t, errors.IsDecode(err))
}

func TestSharpen_PreservesGeometry(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 8))
	for i := range src.Pix {
		src.Pix[i] = uint8(i % 251)
	}

	out := sharpen(src)
	require.NotNil(t, out)
	assert.Equal(t, src.Bounds(), out.Bounds())

	// Border pixels pass through untouched.
	assert.Equal(t, src.RGBAAt(0, 0), out.RGBAAt(0, 0))
	assert.Equal(t, src.RGBAAt(9, 7), out.RGBAAt(9, 7))
}

func TestSharpen_TinyImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	out := sharpen(src)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, src.Pix, out.Pix)
}

func TestSharpen_FlatRegionUnchanged(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}

	// A uniform field has no edges; the kernel sums to identity.
	out := sharpen(src)
	assert.Equal(t, src.Pix, out.Pix)
}
