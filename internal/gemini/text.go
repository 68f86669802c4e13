package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ad-studio/internal/studio"
)

const DefaultTextModel = "gemini-2.5-flash"

type textRequest struct {
	prompt      string
	image       *Blob
	schema      *genai.Schema
	temperature float32
}

type textGenerator interface {
	generateText(ctx context.Context, req textRequest) (string, error)
}

type TextOptions struct {
	APIKey string
	Model  string
	Logger *slog.Logger
}

// TextClient covers the text and JSON capabilities through the Gemini SDK.
type TextClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewTextClient(ctx context.Context, opts TextOptions) (*TextClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultTextModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &TextClient{client: client, model: model, logger: logger}, nil
}

func (t *TextClient) Close() error {
	return t.client.Close()
}

func (t *TextClient) generateText(ctx context.Context, req textRequest) (string, error) {
	model := t.client.GenerativeModel(t.model)
	if req.temperature > 0 {
		model.SetTemperature(req.temperature)
	}
	if req.schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.schema
	}

	parts := []genai.Part{genai.Text(req.prompt)}
	if req.image != nil {
		parts = append([]genai.Part{genai.Blob{MIMEType: req.image.MimeType, Data: req.image.Data}}, parts...)
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %v", studio.ErrContentBlocked, err)
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates returned", studio.ErrContentBlocked)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if txt, ok := p.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	t.logger.Debug("gemini text response", "model", t.model, "json", req.schema != nil, "chars", b.Len())
	return strings.TrimSpace(b.String()), nil
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggestedTitle":       {Type: genai.TypeString},
		"detectedIndustry":     {Type: genai.TypeString},
		"recommendedAudiences": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"naturalEnvironments":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"userStory":            {Type: genai.TypeString},
		"confidence":           {Type: genai.TypeNumber},
	},
	Required: []string{"suggestedTitle", "detectedIndustry", "naturalEnvironments", "userStory"},
}

var adCopySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"headline":    {Type: genai.TypeString, Description: "A short, punchy headline for the ad."},
		"bodyText":    {Type: genai.TypeString, Description: "The persuasive body copy of the ad."},
		"imagePrompt": {Type: genai.TypeString, Description: "A detailed prompt for an AI image generator."},
	},
	Required: []string{"headline", "bodyText", "imagePrompt"},
}
