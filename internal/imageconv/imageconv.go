package imageconv

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	_ "image/gif"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// PreviewMaxSide bounds the longer side of generated previews.
const PreviewMaxSide = 512

var ErrNotImage = errors.New("not a supported image")

type Info struct {
	MimeType string
	Width    int
	Height   int
	Preview  string
}

// Inspect decodes data, detects its real mime type and renders a JPEG preview
// data URL no larger than PreviewMaxSide on either side.
func Inspect(data []byte) (Info, error) {
	img, format, err := decodeImage(data)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	b := img.Bounds()
	info := Info{
		MimeType: "image/" + format,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}

	w, h := fit(info.Width, info.Height, PreviewMaxSide)
	thumb := img
	if w != info.Width || h != info.Height {
		thumb = resizeNearest(img, w, h)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return Info{}, fmt.Errorf("encode preview: %w", err)
	}
	info.Preview = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out.Bytes())
	return info, nil
}

// Convert re-encodes data as jpg, png or webp.
func Convert(data []byte, format string) ([]byte, error) {
	img, _, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	var out bytes.Buffer
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg":
		err = jpeg.Encode(&out, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&out, img)
	case "webp":
		opts, optErr := encoder.NewLossyEncoderOptions(encoder.PresetDefault, 85)
		if optErr != nil {
			return nil, optErr
		}
		err = webp.Encode(&out, img, opts)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodeDataURL splits a base64 data URL into its mime type and bytes.
func DecodeDataURL(value string) (string, []byte, error) {
	value = strings.TrimSpace(value)
	meta, payload, ok := strings.Cut(value, ",")
	if !ok || !strings.HasPrefix(meta, "data:") {
		return "", nil, errors.New("invalid data url")
	}

	mimeType, _, _ := strings.Cut(strings.TrimPrefix(meta, "data:"), ";")
	if mimeType == "" {
		mimeType = "image/png"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64: %w", err)
	}
	return mimeType, data, nil
}

func decodeImage(data []byte) (image.Image, string, error) {
	if isWEBP(data) {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		return img, "webp", err
	}
	return image.Decode(bytes.NewReader(data))
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func fit(width, height, maxSide int) (int, int) {
	if width <= maxSide && height <= maxSide {
		return width, height
	}
	if width >= height {
		return maxSide, max(1, height*maxSide/width)
	}
	return max(1, width*maxSide/height), maxSide
}

func resizeNearest(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := src.Bounds()
	srcW := b.Dx()
	srcH := b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return dst
	}

	for y := 0; y < height; y++ {
		srcY := b.Min.Y + (y*srcH)/height
		for x := 0; x < width; x++ {
			srcX := b.Min.X + (x*srcW)/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
