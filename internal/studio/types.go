package studio

import (
	"context"
	"encoding/base64"
	"time"

	"ad-studio/internal/creative"
)

type State string

const (
	StateIdle            State = "idle"
	StateDescribing      State = "describing"
	StateGeneratingText  State = "generating_text"
	StateGeneratingImage State = "generating_image"
	StateEditing         State = "editing"
)

type ContentKind string

const (
	ContentMockup     ContentKind = "mockup"
	ContentFacebookAd ContentKind = "facebook_ad"
)

// Content is one generated artifact. Image is a data URL; Slogan is set for
// mockups, Headline and BodyText for facebook ads.
type Content struct {
	Kind      ContentKind `json:"kind"`
	Image     string      `json:"image"`
	Slogan    string      `json:"slogan,omitempty"`
	Headline  string      `json:"headline,omitempty"`
	BodyText  string      `json:"bodyText,omitempty"`
	FormatID  string      `json:"formatId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// WithImage copies c with only the image replaced.
func (c Content) WithImage(image string) Content {
	c.Image = image
	return c
}

func (c Content) IsFacebookAd() bool {
	return c.Kind == ContentFacebookAd
}

// Analysis is the structured product metadata returned by the backend.
type Analysis struct {
	Title               string   `json:"title"`
	Industry            string   `json:"industry,omitempty"`
	Audiences           []string `json:"audiences,omitempty"`
	NaturalEnvironments []string `json:"naturalEnvironments,omitempty"`
	Narrative           string   `json:"narrative,omitempty"`
	Confidence          int      `json:"confidence"`
}

type ProductInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Industry    string    `json:"industry,omitempty"`
	Audiences   []string  `json:"audiences,omitempty"`
	Confirmed   bool      `json:"confirmed"`
	Analysis    *Analysis `json:"analysis,omitempty"`
}

const MaxDescriptionRunes = 800

func (in ProductInput) clone() ProductInput {
	in.Audiences = append([]string(nil), in.Audiences...)
	if in.Analysis != nil {
		a := in.Analysis.clone()
		in.Analysis = &a
	}
	return in
}

func (a Analysis) clone() Analysis {
	a.Audiences = append([]string(nil), a.Audiences...)
	a.NaturalEnvironments = append([]string(nil), a.NaturalEnvironments...)
	return a
}

// Image is an uploaded product photo and everything cached against it.
type Image struct {
	ID          string
	Name        string
	MimeType    string
	Data        []byte
	Preview     string
	Width       int
	Height      int
	UploadedAt  time.Time
	Analyzing   bool
	Analysis    *Analysis
	Input       *ProductInput
	Description string

	// analysisRun identifies the background analysis whose results may still land.
	analysisRun int
}

func (img *Image) source() Source {
	return Source{MimeType: img.MimeType, Data: img.Data}
}

// Source is the raw image handed to the backend.
type Source struct {
	MimeType string
	Data     []byte
}

func (s Source) DataURL() string {
	return "data:" + s.MimeType + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

type AdCopy struct {
	Headline    string `json:"headline"`
	BodyText    string `json:"bodyText"`
	ImagePrompt string `json:"imagePrompt"`
}

type ImageResult struct {
	Image string
	Text  string
}

// GenerationParams is captured before each image call so regenerate actions can
// replay it regardless of later selection changes.
type GenerationParams struct {
	Format      creative.Format      `json:"format"`
	SloganStyle creative.SloganStyle `json:"sloganStyle,omitempty"`
	Slogan      string               `json:"slogan,omitempty"`
	Description string               `json:"description"`
	ImageID     string               `json:"imageId"`
	Instruction string               `json:"instruction"`
	AdCopy      *AdCopy              `json:"adCopy,omitempty"`
}

// Backend is the generation service. Every call is single-shot; the session
// never retries on its own.
type Backend interface {
	DescribeImage(ctx context.Context, src Source) (string, error)
	AnalyzeProduct(ctx context.Context, src Source, titleHint, descriptionHint string) (Analysis, error)
	GenerateSlogan(ctx context.Context, src Source, style creative.SloganStyle) (string, error)
	GenerateAdImage(ctx context.Context, src Source, instruction, slogan, description string) (ImageResult, error)
	GenerateAdCopy(ctx context.Context, format creative.Format, description string) (AdCopy, error)
	EditImage(ctx context.Context, image, instruction string) (ImageResult, error)
}
