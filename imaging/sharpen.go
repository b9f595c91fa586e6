package imaging

import "image"

// sharpen applies a 3x3 unsharp-mask convolution over the color channels to
// counteract the blur introduced by downscaling. Only interior pixels are
// convolved; the one-pixel border is copied through unchanged. Alpha is
// preserved.
//
// The kernel is the classic sharpening stencil
//
//	 0 -1  0
//	-1  5 -1
//	 0 -1  0
//
// applied independently to R, G, and B with clamping to [0,255].
func sharpen(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	dst := image.NewRGBA(bounds)
	copy(dst.Pix, src.Pix)

	if width < 3 || height < 3 {
		// Nothing interior to convolve.
		return dst
	}

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := src.PixOffset(x, y)
			up := src.PixOffset(x, y-1)
			down := src.PixOffset(x, y+1)
			left := src.PixOffset(x-1, y)
			right := src.PixOffset(x+1, y)

			for ch := 0; ch < 3; ch++ {
				v := 5*int(src.Pix[center+ch]) -
					int(src.Pix[up+ch]) -
					int(src.Pix[down+ch]) -
					int(src.Pix[left+ch]) -
					int(src.Pix[right+ch])
				dst.Pix[center+ch] = clampByte(v)
			}
			// Alpha copied through by the initial copy.
		}
	}

	return dst
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
