package gemini

// Blob is an inline image sent to or received from the model.
type Blob struct {
	MimeType string
	Data     []byte
}

// ImageResponse is the decoded result of an image generateContent call.
// Images are data URLs.
type ImageResponse struct {
	Text         string
	Images       []string
	FinishReason string
}

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64      `json:"temperature,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// analysisResponse is the JSON shape requested by creative.AnalysisPrompt.
type analysisResponse struct {
	SuggestedTitle       string   `json:"suggestedTitle"`
	DetectedIndustry     string   `json:"detectedIndustry"`
	RecommendedAudiences []string `json:"recommendedAudiences"`
	NaturalEnvironments  []string `json:"naturalEnvironments"`
	UserStory            string   `json:"userStory"`
	Confidence           float64  `json:"confidence"`
}

type adCopyResponse struct {
	Headline    string `json:"headline"`
	BodyText    string `json:"bodyText"`
	ImagePrompt string `json:"imagePrompt"`
}
