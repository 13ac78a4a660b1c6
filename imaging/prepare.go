// Package imaging normalizes uploaded prescription photos before they are sent to a
// vision model: any supported format in, a small RGB JPEG out.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MaxSide bounds the longest side of the prepared image
	MaxSide = 1600
	// JPEGQuality is the re-encoding quality; prescriptions stay legible well below the default
	JPEGQuality = 38
	// OutputMIMEType is the content type of every prepared image
	OutputMIMEType = "image/jpeg"
	// MaxPixels bounds width*height before a full decode; small files can declare huge canvases
	MaxPixels = 50_000_000
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrUnsupportedImage = errors.New("file must be an image")
	ErrInvalidImage     = errors.New("invalid image")
)

// Prepare decodes data, flattens it onto white RGB, scales it so the longest side is at
// most MaxSide and re-encodes it as JPEG
func Prepare(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrUnsupportedImage
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, err := decode(data, mimeType)
	if err != nil {
		return nil, err
	}

	out := flatten(img, targetSize(img.Bounds().Dx(), img.Bounds().Dy()))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, mimeType string) (image.Image, error) {
	// Go's standard image package doesn't support HEIC, common on iPhones
	if IsHEIC(data) || isHEICMimeType(mimeType) {
		cfg, err := heic.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: reading HEIC/HEIF header: %v", ErrInvalidImage, err)
		}
		if err := checkDimensions(cfg); err != nil {
			return nil, err
		}

		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", ErrInvalidImage, err)
		}
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err := checkDimensions(cfg); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

func checkDimensions(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty canvas %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}

// targetSize scales (w, h) down so the longest side is MaxSide; smaller images keep their size
func targetSize(w, h int) image.Rectangle {
	longest := max(w, h)
	if longest <= MaxSide {
		return image.Rect(0, 0, w, h)
	}
	scale := float64(MaxSide) / float64(longest)
	if w >= h {
		return image.Rect(0, 0, MaxSide, max(1, int(float64(h)*scale)))
	}
	return image.Rect(0, 0, max(1, int(float64(w)*scale)), MaxSide)
}

// flatten draws src scaled into bounds over a white background
func flatten(src image.Image, bounds image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	if bounds.Size() == src.Bounds().Size() {
		draw.Draw(dst, bounds, src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, bounds, src, src.Bounds(), draw.Over, nil)
	}
	return dst
}

// IsHEIC checks for an ftyp box with a HEIC/HEIF brand
func IsHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
