// Package images wraps the image pipeline used for promotion and product
// media uploads: bounded resize with re-encoding, and fixed-aspect
// thumbnails.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxWidth  = 1600
	DefaultMaxHeight = 1600
	DefaultQuality   = 80
)

type Options struct {
	MaxWidth  int
	MaxHeight int
	// Quality applies to JPEG output, 1..100.
	Quality int
	// Format is "jpeg" or "png"; empty keeps the source format.
	Format string
	// Progressive is accepted for contract compatibility; the encoder
	// emits baseline JPEG regardless.
	Progressive bool
}

type Result struct {
	Buffer           []byte
	Width            int
	Height           int
	Format           string
	OriginalSize     int
	OptimizedSize    int
	CompressionRatio float64
}

// Optimize decodes raw image bytes, shrinks the image to fit within the
// bounds (never upscales), and re-encodes it. EXIF orientation is applied
// during decode.
func Optimize(raw []byte, opts Options) (*Result, error) {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = DefaultMaxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}

	img, srcFormat, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > opts.MaxWidth || bounds.Dy() > opts.MaxHeight {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
	}

	format := opts.Format
	if format == "" {
		format = srcFormat
	}
	buf, err := encode(img, format, opts.Quality)
	if err != nil {
		return nil, err
	}

	out := img.Bounds()
	ratio := 0.0
	if len(raw) > 0 {
		ratio = 1 - float64(len(buf))/float64(len(raw))
	}
	return &Result{
		Buffer:           buf,
		Width:            out.Dx(),
		Height:           out.Dy(),
		Format:           format,
		OriginalSize:     len(raw),
		OptimizedSize:    len(buf),
		CompressionRatio: ratio,
	}, nil
}

// Thumbnail produces a center-cropped re-encoding at exactly width×height.
func Thumbnail(raw []byte, width, height, quality int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("thumbnail dimensions must be positive")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	img, _, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	return encode(thumb, "jpeg", quality)
}

func decode(raw []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return buf.Bytes(), nil
}
