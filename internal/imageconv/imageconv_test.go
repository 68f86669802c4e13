package imageconv

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspectSmallImageKeepsSize(t *testing.T) {
	info, err := Inspect(pngBytes(t, 40, 20))
	require.NoError(t, err)

	assert.Equal(t, "image/png", info.MimeType)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, 20, info.Height)
	assert.True(t, strings.HasPrefix(info.Preview, "data:image/jpeg;base64,"))
}

func TestInspectBoundsPreview(t *testing.T) {
	info, err := Inspect(pngBytes(t, 1024, 256))
	require.NoError(t, err)

	_, data, err := DecodeDataURL(info.Preview)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, PreviewMaxSide, cfg.Width)
	assert.Equal(t, 128, cfg.Height)
}

func TestInspectRejectsNonImage(t *testing.T) {
	_, err := Inspect([]byte("definitely not an image"))
	require.ErrorIs(t, err, ErrNotImage)
}

func TestConvertToJPEG(t *testing.T) {
	out, err := Convert(pngBytes(t, 8, 8), ".jpg")
	require.NoError(t, err)

	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, err = Convert(pngBytes(t, 8, 8), "bmp")
	require.Error(t, err)
}

func TestDecodeDataURL(t *testing.T) {
	mime, data, err := DecodeDataURL("data:image/webp;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, []byte("hello"), data)

	_, _, err = DecodeDataURL("aGVsbG8=")
	require.Error(t, err)
}

func TestFit(t *testing.T) {
	w, h := fit(2000, 1000, 512)
	assert.Equal(t, 512, w)
	assert.Equal(t, 256, h)

	w, h = fit(100, 3000, 512)
	assert.Equal(t, 17, w)
	assert.Equal(t, 512, h)
}
