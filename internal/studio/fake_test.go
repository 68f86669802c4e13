package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ad-studio/internal/creative"
)

// fakeBackend answers every capability from overridable funcs and counts calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	analyze  func(ctx context.Context, src Source) (Analysis, error)
	describe func(ctx context.Context, src Source) (string, error)
	slogan   func(style creative.SloganStyle) (string, error)
	image    func(instruction, slogan, description string) (ImageResult, error)
	adCopy   func(format creative.Format, description string) (AdCopy, error)
	edit     func(image, instruction string) (ImageResult, error)

	lastInstruction string
	lastSlogan      string
	lastDescription string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) DescribeImage(ctx context.Context, src Source) (string, error) {
	f.hit("describe")
	if f.describe != nil {
		return f.describe(ctx, src)
	}
	return "A red running shoe.", nil
}

func (f *fakeBackend) AnalyzeProduct(ctx context.Context, src Source, titleHint, descriptionHint string) (Analysis, error) {
	f.hit("analyze")
	if f.analyze != nil {
		return f.analyze(ctx, src)
	}
	return Analysis{}, errors.New("analysis disabled")
}

func (f *fakeBackend) GenerateSlogan(_ context.Context, _ Source, style creative.SloganStyle) (string, error) {
	f.hit("slogan")
	if f.slogan != nil {
		return f.slogan(style)
	}
	return `"Run the city"`, nil
}

func (f *fakeBackend) GenerateAdImage(_ context.Context, _ Source, instruction, slogan, description string) (ImageResult, error) {
	f.hit("image")
	f.mu.Lock()
	f.lastInstruction, f.lastSlogan, f.lastDescription = instruction, slogan, description
	f.mu.Unlock()
	if f.image != nil {
		return f.image(instruction, slogan, description)
	}
	return ImageResult{Image: "data:image/png;base64,Z2VuZXJhdGVk"}, nil
}

func (f *fakeBackend) GenerateAdCopy(_ context.Context, format creative.Format, description string) (AdCopy, error) {
	f.hit("adcopy")
	if f.adCopy != nil {
		return f.adCopy(format, description)
	}
	return AdCopy{Headline: "Walk on air", BodyText: "Tired feet? Not anymore.", ImagePrompt: "A runner at dawn"}, nil
}

func (f *fakeBackend) EditImage(_ context.Context, img, instruction string) (ImageResult, error) {
	f.hit("edit")
	f.mu.Lock()
	f.lastInstruction = instruction
	f.mu.Unlock()
	if f.edit != nil {
		return f.edit(img, instruction)
	}
	return ImageResult{Image: "data:image/png;base64,ZWRpdGVk"}, nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestSession(t *testing.T, backend *fakeBackend) *Session {
	t.Helper()
	return New("test", Options{Backend: backend})
}

// uploadReady uploads an image and waits for its background analysis.
func uploadReady(t *testing.T, s *Session, name string) Image {
	t.Helper()
	img, err := s.Upload(context.Background(), name, testPNG(t))
	require.NoError(t, err)
	s.Wait()
	return img
}

func withDescription(t *testing.T, s *Session) {
	t.Helper()
	s.UpdateInput(ProductInput{Title: "Shoe", Description: "A red running shoe."})
}
