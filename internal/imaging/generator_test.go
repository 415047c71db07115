package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 120, 40, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dims(t *testing.T, b []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestGenerate_LargeInputIsBounded(t *testing.T) {
	if testing.Short() {
		t.Skip("encodes a large image")
	}
	original := noisyPNG(t, 2400, 1600)
	require.GreaterOrEqual(t, len(original), 1024*1024)

	g := NewDefaultGenerator(nil)
	d, err := g.Generate(context.Background(), original)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(d.Preview), DefaultPreviewOptions.MaxBytes)
	assert.LessOrEqual(t, len(d.Thumbnail), DefaultThumbnailOptions.MaxBytes)

	pw, ph := dims(t, d.Preview)
	assert.LessOrEqual(t, max(pw, ph), 1920)
	tw, th := dims(t, d.Thumbnail)
	assert.LessOrEqual(t, max(tw, th), 200)

	assert.Equal(t, 2400, d.Width)
	assert.Equal(t, 1600, d.Height)
	assert.Equal(t, "image/png", d.MimeType)
	assert.Equal(t, original, d.Original)
}

func TestGenerate_SmallInputPreviewIsIdentical(t *testing.T) {
	original := solidPNG(t, 320, 240)
	require.Less(t, len(original), DefaultPreviewOptions.PassThroughBelow)

	d, err := NewDefaultGenerator(nil).Generate(context.Background(), original)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(original, d.Preview), "preview must be byte-identical")
	tw, th := dims(t, d.Thumbnail)
	assert.LessOrEqual(t, max(tw, th), 200)
	assert.LessOrEqual(t, len(d.Thumbnail), DefaultThumbnailOptions.MaxBytes)
}

func TestGenerate_UndecodableFallsBack(t *testing.T) {
	original := []byte("definitely not an image")

	d, err := NewDefaultGenerator(nil).Generate(context.Background(), original)
	require.NoError(t, err)
	assert.Equal(t, original, d.Preview)
	assert.Equal(t, d.Preview, d.Thumbnail)
}

func TestGenerate_ThumbnailFailureFallsBackToPreview(t *testing.T) {
	original := solidPNG(t, 64, 64)
	g := NewGenerator(DefaultPreviewOptions, Options{}, nil)

	d, err := g.Generate(context.Background(), original)
	require.NoError(t, err)
	assert.Equal(t, d.Preview, d.Thumbnail)
}

func TestGenerate_EmptyAndCancelled(t *testing.T) {
	g := NewDefaultGenerator(nil)

	_, err := g.Generate(context.Background(), nil)
	require.True(t, errors.Is(err, common.ErrorValidation))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, []byte{1, 2, 3})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFit_ShrinksUntilBudget(t *testing.T) {
	src, _, err := image.Decode(bytes.NewReader(noisyPNG(t, 400, 400)))
	require.NoError(t, err)

	out, err := fit(src, Options{MaxDimension: 400, MaxBytes: 4 * 1024, Quality: 90})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 4*1024)
}
