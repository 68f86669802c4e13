package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"ad-studio/internal/studio"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1beta"
	DefaultImageModel = "gemini-2.5-flash-image"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls generateContent over REST for image output, which the SDK
// cannot request.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

// GenerateImage sends prompt followed by the input images and asks for a
// square image back. Policy refusals wrap studio.ErrContentBlocked.
func (c *Client) GenerateImage(ctx context.Context, prompt string, images ...Blob) (ImageResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ImageResponse{}, errors.New("prompt is empty")
	}

	parts := []part{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, part{InlineData: &blob{
			Data:     base64.StdEncoding.EncodeToString(img.Data),
			MimeType: img.MimeType,
		}})
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &imageConfig{AspectRatio: "1:1"},
		},
	}

	resp, err := c.generateContent(ctx, req)
	if err != nil && isUnknownFieldError(err, "imageConfig") {
		c.logger.Debug("imageConfig not supported, retrying without it", "model", c.model)
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, req)
	}
	return resp, err
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (ImageResponse, error) {
	if c.httpClient == nil {
		return ImageResponse{}, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ImageResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ImageResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ImageResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ImageResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return ImageResponse{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return ImageResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if err := blockError(decoded); err != nil {
		c.logger.Warn("gemini refused request", "model", c.model, "err", err)
		return ImageResponse{}, err
	}

	out := extractParts(decoded)
	c.logger.Debug("gemini image response", "model", c.model, "images", len(out.Images), "finish_reason", out.FinishReason)
	return out, nil
}

var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"IMAGE_SAFETY":       true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

func blockError(resp generateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked (%s)", studio.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("%w: no candidates returned", studio.ErrContentBlocked)
	}
	if reason := resp.Candidates[0].FinishReason; blockedFinishReasons[reason] {
		return fmt.Errorf("%w: finish reason %s", studio.ErrContentBlocked, reason)
	}
	return nil
}

func extractParts(resp generateContentResponse) ImageResponse {
	if len(resp.Candidates) == 0 {
		return ImageResponse{}
	}

	var text strings.Builder
	out := ImageResponse{FinishReason: resp.Candidates[0].FinishReason}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
			out.Images = append(out.Images, fmt.Sprintf("data:%s;base64,%s", p.InlineData.MimeType, p.InlineData.Data))
		}
	}
	out.Text = strings.TrimSpace(text.String())
	return out
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
