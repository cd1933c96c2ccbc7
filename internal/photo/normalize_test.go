package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestCropSquare(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		wantSide int
	}{
		{"landscape", 400, 200, 200},
		{"portrait", 200, 400, 200},
		{"already square", 300, 300, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			out := CropSquare(img)
			b := out.Bounds()
			if b.Dx() != tt.wantSide || b.Dy() != tt.wantSide {
				t.Errorf("CropSquare() = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantSide, tt.wantSide)
			}
		})
	}
}

func TestNormalizeDownscales(t *testing.T) {
	data := makeJPEG(t, 1600, 1200)

	out, w, h, err := Normalize(data, DefaultMaxDimension, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if w != DefaultMaxDimension || h != DefaultMaxDimension {
		t.Errorf("dimensions = %dx%d, want %dx%d", w, h, DefaultMaxDimension, DefaultMaxDimension)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != DefaultMaxDimension {
		t.Errorf("decoded width = %d, want %d", img.Bounds().Dx(), DefaultMaxDimension)
	}
}

func TestNormalizeSmallImageKeptButSquared(t *testing.T) {
	data := makeJPEG(t, 300, 200)

	out, w, h, err := Normalize(data, DefaultMaxDimension, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if w != 200 || h != 200 {
		t.Errorf("dimensions = %dx%d, want 200x200", w, h)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("output is not valid JPEG: %v", err)
	}
}

func TestNormalizePNGInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}

	out, _, _, err := Normalize(buf.Bytes(), 0, 0) // defaults
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("PNG input should re-encode as JPEG: %v", err)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, _, _, err := Normalize([]byte("not an image"), 0, 0); err == nil {
		t.Error("Normalize() should fail on non-image data")
	}
}
