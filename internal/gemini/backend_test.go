package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-studio/internal/creative"
	"ad-studio/internal/studio"
)

type fakeText struct {
	reply string
	err   error
	last  textRequest
}

func (f *fakeText) generateText(_ context.Context, req textRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}

type fakeImages struct {
	resp   ImageResponse
	err    error
	prompt string
	blobs  []Blob
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string, images ...Blob) (ImageResponse, error) {
	f.prompt = prompt
	f.blobs = images
	return f.resp, f.err
}

var shoe = studio.Source{MimeType: "image/png", Data: []byte("png")}

func TestAnalyzeProduct(t *testing.T) {
	text := &fakeText{reply: "```json\n" + `{
		"suggestedTitle": "",
		"detectedIndustry": "Fashion",
		"recommendedAudiences": ["runners", " "],
		"naturalEnvironments": ["city park", "", "running track"],
		"userStory": " A red running shoe. ",
		"confidence": 0.87
	}` + "\n```"}
	b := newBackend(&fakeImages{}, text, nil)

	a, err := b.AnalyzeProduct(t.Context(), shoe, "Product", "AI-powered product analysis")
	require.NoError(t, err)
	assert.Equal(t, "Product", a.Title)
	assert.Equal(t, "fashion", a.Industry)
	assert.Equal(t, []string{"runners"}, a.Audiences)
	assert.Equal(t, []string{"city park", "running track"}, a.NaturalEnvironments)
	assert.Equal(t, "A red running shoe.", a.Narrative)
	assert.Equal(t, 87, a.Confidence)

	assert.NotNil(t, text.last.schema)
	require.NotNil(t, text.last.image)
	assert.Equal(t, "image/png", text.last.image.MimeType)
	assert.Contains(t, text.last.prompt, "Product AI-powered product analysis")
}

func TestAnalyzeProductBadJSON(t *testing.T) {
	b := newBackend(&fakeImages{}, &fakeText{reply: "not json"}, nil)
	_, err := b.AnalyzeProduct(t.Context(), shoe, "", "")
	require.Error(t, err)
}

func TestGenerateSloganCleansOutput(t *testing.T) {
	text := &fakeText{reply: `"Run the city"`}
	b := newBackend(&fakeImages{}, text, nil)

	s, err := b.GenerateSlogan(t.Context(), shoe, creative.SloganHook)
	require.NoError(t, err)
	assert.Equal(t, "Run the city", s)
	assert.Equal(t, creative.SloganPrompt(creative.SloganHook), text.last.prompt)

	text.reply = `""`
	_, err = b.GenerateSlogan(t.Context(), shoe, creative.SloganHook)
	require.Error(t, err)
}

func TestGenerateAdCopy(t *testing.T) {
	text := &fakeText{reply: `{"headline":"Walk on air","bodyText":"Tired feet?","imagePrompt":"A runner at dawn"}`}
	b := newBackend(&fakeImages{}, text, nil)
	f, _ := creative.Builtin().Lookup("facebook_storytelling")

	ad, err := b.GenerateAdCopy(t.Context(), f, "A red shoe.")
	require.NoError(t, err)
	assert.Equal(t, studio.AdCopy{Headline: "Walk on air", BodyText: "Tired feet?", ImagePrompt: "A runner at dawn"}, ad)
	assert.Nil(t, text.last.image)

	text.reply = `{"headline":"x","bodyText":"y"}`
	_, err = b.GenerateAdCopy(t.Context(), f, "A red shoe.")
	require.Error(t, err)
}

func TestGenerateAdImage(t *testing.T) {
	images := &fakeImages{resp: ImageResponse{Images: []string{"data:image/png;base64,eA=="}}}
	b := newBackend(images, &fakeText{}, nil)

	res, err := b.GenerateAdImage(t.Context(), shoe, "Place it on a shelf.", "Run the city", "A red shoe.")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,eA==", res.Image)
	assert.Equal(t, creative.MockupPrompt("Place it on a shelf.", "Run the city", "A red shoe."), images.prompt)
	require.Len(t, images.blobs, 1)
	assert.Equal(t, []byte("png"), images.blobs[0].Data)
}

func TestMissingImageReportsReason(t *testing.T) {
	images := &fakeImages{resp: ImageResponse{Text: "I cannot draw that", FinishReason: "STOP"}}
	b := newBackend(images, &fakeText{}, nil)

	_, err := b.GenerateAdImage(t.Context(), shoe, "x", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STOP")
	assert.Contains(t, err.Error(), "I cannot draw that")
	assert.False(t, errors.Is(err, studio.ErrContentBlocked))
}

func TestEditImage(t *testing.T) {
	images := &fakeImages{resp: ImageResponse{Images: []string{"data:image/png;base64,ZWRpdGVk"}}}
	b := newBackend(images, &fakeText{}, nil)

	res, err := b.EditImage(t.Context(), "data:image/jpeg;base64,YWJj", "add a hat")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,ZWRpdGVk", res.Image)
	assert.Equal(t, creative.EditPrompt("add a hat"), images.prompt)
	require.Len(t, images.blobs, 1)
	assert.Equal(t, "image/jpeg", images.blobs[0].MimeType)
	assert.Equal(t, []byte("abc"), images.blobs[0].Data)

	_, err = b.EditImage(t.Context(), "not a data url", "add a hat")
	require.Error(t, err)
}

func TestDescribeImagePropagatesBlock(t *testing.T) {
	b := newBackend(&fakeImages{}, &fakeText{err: studio.ErrContentBlocked}, nil)
	_, err := b.DescribeImage(t.Context(), shoe)
	assert.ErrorIs(t, err, studio.ErrContentBlocked)
}

func TestConfidenceScale(t *testing.T) {
	assert.Equal(t, 85, confidence(85))
	assert.Equal(t, 50, confidence(0.5))
	assert.Equal(t, 100, confidence(250))
	assert.Equal(t, 0, confidence(-3))
}
