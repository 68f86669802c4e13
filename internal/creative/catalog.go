package creative

import (
	"fmt"
	"strings"
)

// FormatKind selects the generation pipeline a format runs through.
type FormatKind string

const (
	KindMockup   FormatKind = "mockup"
	KindSocial   FormatKind = "social"
	KindFacebook FormatKind = "facebook"
)

// DefaultFormatName is the format used when the user has not picked one.
const DefaultFormatName = "Natural Environment"

type Format struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Kind        FormatKind `json:"kind" yaml:"kind"`
	Prompt      string     `json:"prompt" yaml:"prompt"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsNaturalEnvironment reports whether the format's instruction is completed
// with a placement context at generation time.
func (f Format) IsNaturalEnvironment() bool {
	return strings.EqualFold(strings.TrimSpace(f.Name), DefaultFormatName)
}

type SloganStyle string

const (
	SloganNone    SloganStyle = ""
	SloganHook    SloganStyle = "hook"
	SloganTagline SloganStyle = "tagline"
	SloganMeme    SloganStyle = "meme"
	SloganJoke    SloganStyle = "joke"
	SloganQuote   SloganStyle = "quote"
	SloganFunFact SloganStyle = "fun_fact"
)

type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Adjustment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Catalog is an ordered, read-only set of formats. Lookups are case-insensitive.
type Catalog struct {
	formats []Format
	byID    map[string]int
}

func NewCatalog(formats []Format) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(formats))}
	for _, f := range formats {
		f.ID = normalizeKey(f.ID)
		f.Name = strings.TrimSpace(f.Name)
		f.Kind = FormatKind(normalizeKey(string(f.Kind)))
		if f.ID == "" {
			f.ID = normalizeKey(f.Name)
		}
		if f.ID == "" {
			return nil, fmt.Errorf("format without id or name")
		}
		switch f.Kind {
		case KindMockup, KindSocial, KindFacebook:
		case "":
			f.Kind = KindMockup
		default:
			return nil, fmt.Errorf("format %q: unknown kind %q", f.ID, f.Kind)
		}
		if strings.TrimSpace(f.Prompt) == "" {
			return nil, fmt.Errorf("format %q: prompt is empty", f.ID)
		}
		if f.Name == "" {
			f.Name = f.ID
		}

		if idx, ok := c.byID[f.ID]; ok {
			c.formats[idx] = f
			continue
		}
		c.byID[f.ID] = len(c.formats)
		c.formats = append(c.formats, f)
	}
	return c, nil
}

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog {
	c, err := NewCatalog(builtinFormats)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Formats() []Format {
	return append([]Format(nil), c.formats...)
}

func (c *Catalog) Lookup(id string) (Format, bool) {
	idx, ok := c.byID[normalizeKey(id)]
	if !ok {
		return Format{}, false
	}
	return c.formats[idx], true
}

func (c *Catalog) ByName(name string) (Format, bool) {
	name = strings.TrimSpace(name)
	for _, f := range c.formats {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Format{}, false
}

// Default looks up the natural-environment format by name.
func (c *Catalog) Default() (Format, bool) {
	return c.ByName(DefaultFormatName)
}

func SloganStyles() []NamedOption {
	order := []SloganStyle{SloganHook, SloganTagline, SloganMeme, SloganJoke, SloganQuote, SloganFunFact}
	out := make([]NamedOption, 0, len(order))
	for _, key := range order {
		out = append(out, NamedOption{Key: string(key), Name: sloganStyles[key].Name})
	}
	return out
}

// ParseSloganStyle accepts a style key; "" and "none" mean no slogan.
func ParseSloganStyle(value string) (SloganStyle, error) {
	key := normalizeKey(value)
	if key == "" || key == "none" {
		return SloganNone, nil
	}
	if _, ok := sloganStyles[SloganStyle(key)]; ok {
		return SloganStyle(key), nil
	}
	return SloganNone, fmt.Errorf("unknown slogan style %q", value)
}

func Adjustments() []Adjustment {
	return append([]Adjustment(nil), adjustments...)
}

func LookupAdjustment(id string) (Adjustment, bool) {
	id = normalizeKey(id)
	for _, a := range adjustments {
		if a.ID == id {
			return a, true
		}
	}
	return Adjustment{}, false
}

func normalizeKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	return strings.Join(strings.Fields(value), "_")
}

var builtinFormats = []Format{
	{
		ID:          "natural_environment",
		Name:        DefaultFormatName,
		Kind:        KindMockup,
		Description: "Places the product in a realistic setting where it would naturally be used.",
		Prompt:      "Place this product in a natural, realistic environment where it would typically be used or displayed. The product should be prominently displayed and maintain its original appearance. Create a professional, photorealistic composition that showcases the product effectively.",
	},
	{
		ID:          "studio_mockup",
		Name:        "Studio Mockup",
		Kind:        KindMockup,
		Description: "Clean seamless studio backdrop with soft commercial lighting.",
		Prompt:      "Present the product on a seamless studio backdrop with soft, even commercial lighting, a subtle floor shadow, and generous negative space for copy.",
	},
	{
		ID:          "lifestyle_scene",
		Name:        "Lifestyle Scene",
		Kind:        KindMockup,
		Description: "The product in use in an aspirational everyday moment.",
		Prompt:      "Show the product in an aspirational lifestyle moment: natural light, tasteful props, and a person's hands interacting with it. The product remains the clear hero of the frame.",
	},
	{
		ID:          "billboard",
		Name:        "Billboard",
		Kind:        KindMockup,
		Description: "Large outdoor billboard in a city setting.",
		Prompt:      "Create a photorealistic outdoor billboard mockup in a busy city street at golden hour. The billboard artwork features the product large and centered with bold, clean layout.",
	},
	{
		ID:          "instagram_post",
		Name:        "Instagram Post",
		Kind:        KindSocial,
		Description: "Scroll-stopping square social post.",
		Prompt:      "Design a scroll-stopping square Instagram post featuring the product: bold color blocking, playful composition, and a clear focal point that reads well on a phone screen.",
	},
	{
		ID:          "story_ad",
		Name:        "Story Ad",
		Kind:        KindSocial,
		Description: "Energetic full-bleed social story creative.",
		Prompt:      "Design an energetic social story ad creative around the product with dynamic angles, motion cues, and a clean area reserved for a short caption.",
	},
	{
		ID:          "facebook_direct_response",
		Name:        "Facebook Direct Response",
		Kind:        KindFacebook,
		Description: "Problem-agitate-solve Facebook ad with headline and body copy.",
		Prompt:      "Direct response ad following the problem-agitate-solve structure, ending with a clear call to action.",
	},
	{
		ID:          "facebook_storytelling",
		Name:        "Facebook Storytelling",
		Kind:        KindFacebook,
		Description: "Short customer story Facebook ad with headline and body copy.",
		Prompt:      "Storytelling ad told from a happy customer's point of view, warm and authentic, ending with a soft call to action.",
	},
}

var sloganStyles = map[SloganStyle]struct {
	Name   string
	Prompt string
}{
	SloganHook: {
		Name:   "Hook",
		Prompt: "Analyze this product image. Brainstorm a short, witty, and modern marketing hook for it. It should be a scroll-stopper, clever, and feel more like a funny observation than a traditional ad tagline. Aim for a casual, conversational tone.",
	},
	SloganTagline: {
		Name:   "Tagline",
		Prompt: "Generate a short, professional, and catchy tagline for this product. Suitable for a corporate or business context.",
	},
	SloganMeme: {
		Name:   "Meme",
		Prompt: "Analyze this product image. Come up with a short, funny meme caption for it. It should be in the style of a popular internet meme. Keep it concise and relatable.",
	},
	SloganJoke: {
		Name:   "Joke",
		Prompt: "Analyze this product image. Tell a short, clever one-liner joke related to the product or what it does. The joke should be lighthearted and safe for a general audience.",
	},
	SloganQuote: {
		Name:   "Quote",
		Prompt: "Analyze this product image. Generate a short, inspiring or thought-provoking quote that relates to the feeling or purpose of this product. Make it sound profound but keep it brief.",
	},
	SloganFunFact: {
		Name:   "Fun Fact",
		Prompt: "Analyze this product image. Come up with a surprising and fun fact that is tangentially related to the product, its category, or its use case. Keep it short and interesting.",
	},
}

var adjustments = []Adjustment{
	{
		ID:     "enhance",
		Name:   "Enhance Quality",
		Prompt: "Rerender the user's product image within the scene at the highest possible fidelity. Enhance its details, sharpen its lines, and remove any pixelation or artifacts as if it were a vector graphic. The overall composition and style must remain the same.",
	},
	{
		ID:     "blur_background",
		Name:   "Blur Background",
		Prompt: "Apply a professional bokeh effect to blur the background, making the main subject stand out.",
	},
	{
		ID:     "warmer_lighting",
		Name:   "Warmer Lighting",
		Prompt: "Adjust the color temperature to give the image a warmer, more inviting golden-hour feel.",
	},
	{
		ID:     "studio_light",
		Name:   "Studio Light",
		Prompt: "Re-light the image as if it were in a professional photo studio with clean, bright, and even lighting.",
	},
}
