// Package imaging detects image formats, fetches remote images, and
// resolves an image for a tracked item from the external catalogs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the format detectors.
var (
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
	ErrInvalidInput      = errors.New("imaging: not enough data to detect format")
)

// knownExtensions are matched anywhere in a URL, not only as a suffix,
// because catalog CDNs embed the extension mid-path.
var knownExtensions = []string{
	".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tiff", ".avif",
}

// TypeFromURL classifies an image URL by the first known extension found
// anywhere in it, case-insensitively.
func TypeFromURL(rawURL string) (string, error) {
	lower := strings.ToLower(rawURL)
	for _, ext := range knownExtensions {
		if strings.Contains(lower, ext) {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, rawURL)
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// TypeFromBytes classifies image data by its magic number. At least 8 bytes
// are required.
func TypeFromBytes(data []byte) (string, error) {
	if len(data) < 8 {
		return "", ErrInvalidInput
	}
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return ".jpg", nil
	}
	if bytes.HasPrefix(data, pngSignature) {
		return ".png", nil
	}
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return ".webp", nil
	}
	return "", ErrUnsupportedFormat
}
