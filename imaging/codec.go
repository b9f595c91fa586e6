package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/c360/cropvision/errors"
)

// Format identifies a raster encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
)

// carriesEmbeddedMetadata reports whether blobs of this format typically
// carry embedded metadata blocks (EXIF and friends).
func (f Format) carriesEmbeddedMetadata() bool {
	switch f {
	case FormatJPEG, FormatWebP:
		return true
	default:
		return false
	}
}

// Codec abstracts raster decode and encode so the transcoder's resize,
// sharpen, and compression contract is independent of the concrete imaging
// backend.
type Codec interface {
	// Decode parses a raster blob, returning the image and its detected
	// format.
	Decode(data []byte) (image.Image, Format, error)

	// DecodeConfig parses only the header, returning dimensions and format
	// without materializing pixel data.
	DecodeConfig(data []byte) (width, height int, format Format, err error)

	// Encode serializes an image in the given format. Quality applies to
	// lossy formats and is ignored by lossless ones.
	Encode(img image.Image, format Format, quality int) ([]byte, error)
}

// StdCodec implements Codec on the standard library image codecs, with WebP
// decode support. Encoding targets JPEG and PNG; GIF and WebP inputs are
// re-encoded into one of those.
type StdCodec struct{}

// Decode parses a raster blob using the registered stdlib decoders.
func (StdCodec) Decode(data []byte) (image.Image, Format, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.WrapDecode(errors.ErrDecodeFailed, "StdCodec", "Decode", err.Error())
	}
	return img, Format(format), nil
}

// DecodeConfig parses only the blob header.
func (StdCodec) DecodeConfig(data []byte) (int, int, Format, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", errors.WrapDecode(errors.ErrDecodeFailed, "StdCodec", "DecodeConfig", err.Error())
	}
	return cfg.Width, cfg.Height, Format(format), nil
}

// Encode serializes img in the requested output format.
func (StdCodec) Encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, errors.WrapEncode(errors.ErrEncodeFailed, "StdCodec", "Encode", err.Error())
		}
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, errors.WrapEncode(errors.ErrEncodeFailed, "StdCodec", "Encode", err.Error())
		}
	case FormatGIF:
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, errors.WrapEncode(errors.ErrEncodeFailed, "StdCodec", "Encode", err.Error())
		}
	default:
		return nil, errors.WrapValidation(errors.ErrUnsupportedFormat, "StdCodec", "Encode",
			fmt.Sprintf("no encoder for format %q", format))
	}

	if buf.Len() == 0 {
		return nil, errors.WrapEncode(errors.ErrEmptyEncodeOutput, "StdCodec", "Encode",
			fmt.Sprintf("encoder for %q produced no output", format))
	}

	return buf.Bytes(), nil
}
