package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimize_ShrinksToFit(t *testing.T) {
	raw := pngFixture(t, 400, 200)

	res, err := Optimize(raw, Options{MaxWidth: 100, MaxHeight: 100, Format: "jpeg"})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height, "aspect ratio preserved")
	assert.Equal(t, "jpeg", res.Format)
	assert.Equal(t, len(raw), res.OriginalSize)
	assert.Equal(t, len(res.Buffer), res.OptimizedSize)
}

func TestOptimize_NeverUpscales(t *testing.T) {
	raw := pngFixture(t, 60, 40)

	res, err := Optimize(raw, Options{MaxWidth: 500, MaxHeight: 500})
	require.NoError(t, err)

	assert.Equal(t, 60, res.Width)
	assert.Equal(t, 40, res.Height)
	assert.Equal(t, "png", res.Format, "source format kept when none requested")
}

func TestOptimize_RejectsGarbage(t *testing.T) {
	_, err := Optimize([]byte("not an image"), Options{})
	assert.Error(t, err)
}

func TestThumbnail_FixedAspectCrop(t *testing.T) {
	raw := pngFixture(t, 300, 100)

	thumb, err := Thumbnail(raw, 64, 64, 75)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 64, cfg.Height)
}

func TestThumbnail_InvalidDimensions(t *testing.T) {
	_, err := Thumbnail(pngFixture(t, 10, 10), 0, 64, 75)
	assert.Error(t, err)
}
