package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"outfitlens/internal/domain"
)

const (
	// DefaultMaxBytes caps uploads at 10 MB.
	DefaultMaxBytes int64 = 10 << 20
	// MaxPixels bounds width*height so a forged header cannot force a huge decode.
	MaxPixels = 40_000_000
)

// Info describes a validated image payload.
type Info struct {
	MIME   string
	Ext    string
	Width  int
	Height int
	Size   int64
}

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Probe checks that data is a JPEG, PNG or WEBP image no larger than maxBytes
// and reads its dimensions without decoding the pixels.
func Probe(data []byte, maxBytes int64) (Info, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	size := int64(len(data))
	if size == 0 {
		return Info{}, fmt.Errorf("%w: empty payload", domain.ErrInvalidImage)
	}
	if size > maxBytes {
		return Info{}, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrImageTooLarge, size, maxBytes)
	}

	mime := http.DetectContentType(data)
	ext, ok := allowed[mime]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, mime)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return Info{}, err
	}

	return Info{MIME: mime, Ext: ext, Width: cfg.Width, Height: cfg.Height, Size: size}, nil
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: zero dimensions", domain.ErrInvalidImage)
	}
	if int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrImageTooLarge, w, h, MaxPixels)
	}
	return nil
}

// decodeBounded reads the header first and refuses to decode oversized images.
func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}
