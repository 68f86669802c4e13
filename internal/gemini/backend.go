package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"ad-studio/internal/creative"
	"ad-studio/internal/imageconv"
	"ad-studio/internal/studio"
)

type imageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, images ...Blob) (ImageResponse, error)
}

// Backend implements studio.Backend on top of the REST image client and the
// SDK text client.
type Backend struct {
	images imageGenerator
	text   textGenerator
	logger *slog.Logger
}

var _ studio.Backend = (*Backend)(nil)

func NewBackend(images *Client, text *TextClient, logger *slog.Logger) *Backend {
	return newBackend(images, text, logger)
}

func newBackend(images imageGenerator, text textGenerator, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Backend{images: images, text: text, logger: logger}
}

func (b *Backend) DescribeImage(ctx context.Context, src studio.Source) (string, error) {
	text, err := b.text.generateText(ctx, textRequest{
		prompt: creative.DescribePrompt,
		image:  blobOf(src),
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty description")
	}
	return text, nil
}

func (b *Backend) AnalyzeProduct(ctx context.Context, src studio.Source, titleHint, descriptionHint string) (studio.Analysis, error) {
	prompt := creative.AnalysisPrompt()
	if hint := strings.TrimSpace(titleHint + " " + descriptionHint); hint != "" {
		prompt += "\n\nUser-provided hints (may be generic): " + hint
	}

	text, err := b.text.generateText(ctx, textRequest{
		prompt:      prompt,
		image:       blobOf(src),
		schema:      analysisSchema,
		temperature: 0.4,
	})
	if err != nil {
		return studio.Analysis{}, err
	}

	var raw analysisResponse
	if err := decodeJSON(text, &raw); err != nil {
		return studio.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}

	a := studio.Analysis{
		Title:               strings.TrimSpace(raw.SuggestedTitle),
		Industry:            strings.ToLower(strings.TrimSpace(raw.DetectedIndustry)),
		Audiences:           compact(raw.RecommendedAudiences),
		NaturalEnvironments: compact(raw.NaturalEnvironments),
		Narrative:           strings.TrimSpace(raw.UserStory),
		Confidence:          confidence(raw.Confidence),
	}
	if a.Title == "" {
		a.Title = strings.TrimSpace(titleHint)
	}
	return a, nil
}

func (b *Backend) GenerateSlogan(ctx context.Context, src studio.Source, style creative.SloganStyle) (string, error) {
	text, err := b.text.generateText(ctx, textRequest{
		prompt:      creative.SloganPrompt(style),
		image:       blobOf(src),
		temperature: 0.9,
	})
	if err != nil {
		return "", err
	}
	slogan := creative.CleanSlogan(text)
	if slogan == "" {
		return "", errors.New("empty slogan")
	}
	return slogan, nil
}

func (b *Backend) GenerateAdCopy(ctx context.Context, format creative.Format, description string) (studio.AdCopy, error) {
	text, err := b.text.generateText(ctx, textRequest{
		prompt: creative.AdCopyPrompt(format, description),
		schema: adCopySchema,
	})
	if err != nil {
		return studio.AdCopy{}, err
	}

	var raw adCopyResponse
	if err := decodeJSON(text, &raw); err != nil {
		return studio.AdCopy{}, fmt.Errorf("decode ad copy: %w", err)
	}
	ad := studio.AdCopy{
		Headline:    strings.TrimSpace(raw.Headline),
		BodyText:    strings.TrimSpace(raw.BodyText),
		ImagePrompt: strings.TrimSpace(raw.ImagePrompt),
	}
	if ad.ImagePrompt == "" {
		return studio.AdCopy{}, errors.New("ad copy is missing an image prompt")
	}
	return ad, nil
}

func (b *Backend) GenerateAdImage(ctx context.Context, src studio.Source, instruction, slogan, description string) (studio.ImageResult, error) {
	resp, err := b.images.GenerateImage(ctx, creative.MockupPrompt(instruction, slogan, description), *blobOf(src))
	if err != nil {
		return studio.ImageResult{}, err
	}
	return firstImage(resp)
}

func (b *Backend) EditImage(ctx context.Context, image, instruction string) (studio.ImageResult, error) {
	mime, data, err := imageconv.DecodeDataURL(image)
	if err != nil {
		return studio.ImageResult{}, fmt.Errorf("decode current image: %w", err)
	}
	resp, err := b.images.GenerateImage(ctx, creative.EditPrompt(instruction), Blob{MimeType: mime, Data: data})
	if err != nil {
		return studio.ImageResult{}, err
	}
	return firstImage(resp)
}

func firstImage(resp ImageResponse) (studio.ImageResult, error) {
	if len(resp.Images) == 0 {
		reason := resp.FinishReason
		if reason == "" {
			reason = "unknown"
		}
		if resp.Text != "" {
			return studio.ImageResult{}, fmt.Errorf("no image returned (finish reason %s): %s", reason, resp.Text)
		}
		return studio.ImageResult{}, fmt.Errorf("no image returned (finish reason %s)", reason)
	}
	return studio.ImageResult{Image: resp.Images[0], Text: resp.Text}, nil
}

func blobOf(src studio.Source) *Blob {
	return &Blob{MimeType: src.MimeType, Data: src.Data}
}

// decodeJSON tolerates a markdown code fence around the payload.
func decodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return json.Unmarshal([]byte(text), v)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// confidence accepts both 0..1 and 0..100 scales.
func confidence(v float64) int {
	if v > 0 && v <= 1 {
		v *= 100
	}
	return int(math.Max(0, math.Min(100, math.Round(v))))
}
