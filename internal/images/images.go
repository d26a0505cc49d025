// Package images checks that uploaded bytes are a decodable raster image and
// fetches remote images for inlining.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxBytes bounds uploads and fetched images.
	DefaultMaxBytes = 20 << 20

	// DefaultMaxPixels bounds the declared width*height. It matches Pillow's
	// decompression bomb ceiling of roughly 89 million pixels.
	DefaultMaxPixels = 1 << 30 / 4 / 3
)

var (
	ErrEmpty         = errors.New("image is empty")
	ErrTooLarge      = errors.New("image exceeds size limit")
	ErrTooManyPixels = errors.New("image dimensions exceed pixel limit")
)

// Info describes a decoded image.
type Info struct {
	Format string `json:"format"` // "png", "jpeg", "gif", "bmp", "tiff", "webp"
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

// MediaType returns the MIME type for the decoded format.
func (i Info) MediaType() string {
	return "image/" + i.Format
}

// Inspect fully decodes data and reports its format and dimensions. A header
// that decodes but a truncated or corrupt body does not. The header's declared
// size is checked against maxPixels (DefaultMaxPixels when <= 0) before any
// pixel buffer is allocated.
func Inspect(data []byte, maxBytes, maxPixels int) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return Info{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), maxBytes)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("invalid image format: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("invalid image format: zero dimensions")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return Info{}, fmt.Errorf("%w: %dx%d > %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("invalid image format: %w", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return Info{}, fmt.Errorf("invalid image format: zero dimensions")
	}

	return Info{
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Bytes:  len(data),
	}, nil
}
