package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected JPEG output, got decode error: %v", err)
	}
	return img
}

func TestPrepareScalesLargeImages(t *testing.T) {
	data := encodePNG(t, solid(3200, 1000, color.NRGBA{R: 200, G: 10, B: 10, A: 255}))

	out, err := Prepare(data, "image/png")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 1600 || b.Dy() != 500 {
		t.Errorf("Expected 1600x500, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, solid(120, 80, color.NRGBA{G: 255, A: 255}))

	out, err := Prepare(data, "IMAGE/PNG")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 120 || b.Dy() != 80 {
		t.Errorf("Expected 120x80, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareFlattensTransparency(t *testing.T) {
	data := encodePNG(t, solid(16, 16, color.NRGBA{}))

	out, err := Prepare(data, "image/png")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	r, g, b, _ := decodeJPEG(t, out).At(8, 8).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("Expected transparent pixels to become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestPrepareErrors(t *testing.T) {
	valid := encodePNG(t, solid(4, 4, color.Black))

	tests := []struct {
		name        string
		data        []byte
		contentType string
		expected    error
	}{
		{"not an image type", valid, "application/pdf", ErrUnsupportedImage},
		{"missing type", valid, "", ErrUnsupportedImage},
		{"empty body", nil, "image/png", ErrEmptyImage},
		{"garbage", []byte("definitely not pixels"), "image/jpeg", ErrInvalidImage},
		{"bad heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), "image/heic", ErrInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(tt.data, tt.contentType)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring a w x h RGBA canvas,
// enough for DecodeConfig without any pixel data behind it
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestPrepareRejectsOversizedCanvas(t *testing.T) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pngHeader(12000, 12000)))
	if err != nil || cfg.Width != 12000 {
		t.Fatalf("Expected a readable 12000x12000 header, got %+v, %v", cfg, err)
	}

	_, err = Prepare(pngHeader(12000, 12000), "image/png")
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage for a 144MP canvas, got %v", err)
	}
}

func TestCheckDimensions(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		valid bool
	}{
		{"small", 800, 600, true},
		{"at limit", 10000, 5000, true},
		{"over limit", 10000, 5001, false},
		{"zero", 0, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDimensions(image.Config{Width: tt.w, Height: tt.h})
			if (err == nil) != tt.valid {
				t.Errorf("checkDimensions(%dx%d) = %v, expected valid=%v", tt.w, tt.h, err, tt.valid)
			}
			if err != nil && !errors.Is(err, ErrInvalidImage) {
				t.Errorf("Expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1600, 1200, 1600, 1200},
		{1000, 4000, 400, 1600},
		{3200, 3200, 1600, 1600},
		{3200, 2001, 1600, 1000},
		{10000, 1, 1600, 1},
	}

	for _, tt := range tests {
		got := targetSize(tt.w, tt.h)
		if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
			t.Errorf("targetSize(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestIsHEIC(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{"heic brand", []byte("\x00\x00\x00\x18ftypheic"), true},
		{"mif1 brand", []byte("\x00\x00\x00\x18ftypmif1"), true},
		{"mp4 brand", []byte("\x00\x00\x00\x18ftypisom"), false},
		{"too short", []byte("ftyp"), false},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0d"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHEIC(tt.data); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
