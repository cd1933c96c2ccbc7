// Package photo prepares captured meal photos for upload and for the AI
// enrichment calls: center-crop to square, downscale to a bounded dimension,
// and re-encode as JPEG at a fixed quality. Smaller inputs keep the
// downstream per-call cost low without hurting dish recognition.
package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Output bounds for normalized photos.
const (
	DefaultMaxDimension = 800
	DefaultJPEGQuality  = 85
)

// Source describes a photo entering the capture flow, from the camera or
// the gallery picker.
type Source struct {
	URI         string `json:"uri"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	OriginalURI string `json:"originalUri,omitempty"`
	FromGallery bool   `json:"fromGallery,omitempty"`
}

// CropSquare returns the largest centered 1:1 crop of img. Already-square
// images are returned unchanged.
func CropSquare(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	side := w
	if h < side {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	rect := image.Rect(x0, y0, x0+side, y0+side)

	cropped := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Copy(cropped, image.Point{}, img, rect, draw.Src, nil)
	return cropped
}

// Normalize decodes data (JPEG or PNG), center-crops to square, scales down
// to at most maxDim on a side, and re-encodes as JPEG at the given quality.
// Returns the encoded bytes and the output dimensions. Images already within
// bounds are still cropped and re-encoded so every stored photo has the same
// shape and format.
func Normalize(data []byte, maxDim, quality int) ([]byte, int, int, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	img, format, err := decode(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode photo: %w", err)
	}

	square := CropSquare(img)
	side := square.Bounds().Dx()

	out := square
	if side > maxDim {
		resized := image.NewRGBA(image.Rect(0, 0, maxDim, maxDim))
		draw.CatmullRom.Scale(resized, resized.Bounds(), square, square.Bounds(), draw.Over, nil)
		out = resized
		side = maxDim
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode normalized photo: %w", err)
	}

	log.Debug().
		Str("input_format", format).
		Int("input_bytes", len(data)).
		Int("output_bytes", buf.Len()).
		Int("side", side).
		Msg("Photo normalized")

	return buf.Bytes(), side, side, nil
}

func decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}

	// image.Decode depends on registered decoders; try the two formats the
	// capture flow produces explicitly so the error names the real problem.
	if img, jerr := jpeg.Decode(bytes.NewReader(data)); jerr == nil {
		return img, "jpeg", nil
	}
	if img, perr := png.Decode(bytes.NewReader(data)); perr == nil {
		return img, "png", nil
	}
	return nil, "", err
}
