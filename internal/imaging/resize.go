package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// jpegQuality is the encoder setting for downscaled covers.
const jpegQuality = 85

// Shrink scales the image down to fit within maxDim on both axes,
// preserving aspect ratio, and re-encodes it. Images that already fit are
// returned unchanged. WebP input is re-encoded as PNG since no WebP
// encoder is available.
func Shrink(data []byte, maxDim int) ([]byte, string, error) {
	ext, err := TypeFromBytes(data)
	if err != nil {
		return nil, "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW <= maxDim && origH <= maxDim {
		return data, ext, nil
	}

	newW, newH := fitDimensions(origW, origH, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	if ext == ".webp" {
		ext = ".png"
	}

	var buf bytes.Buffer
	switch ext {
	case ".jpg":
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encoding jpeg: %w", err)
		}
	case ".png":
		if err := png.Encode(&buf, dst); err != nil {
			return nil, "", fmt.Errorf("encoding png: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	return buf.Bytes(), ext, nil
}

// fitDimensions scales (origW, origH) to fit within maxDim x maxDim.
func fitDimensions(origW, origH, maxDim int) (int, int) {
	ratio := math.Min(float64(maxDim)/float64(origW), float64(maxDim)/float64(origH))
	newW := int(math.Round(float64(origW) * ratio))
	newH := int(math.Round(float64(origH) * ratio))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}
