package studio

import (
	"strings"

	"ad-studio/internal/creative"
)

// GenerateRequest carries the optional per-call overrides of a generation.
type GenerateRequest struct {
	// FormatID wins over the session's selected formats.
	FormatID string `json:"formatId,omitempty"`
	// Environment completes the natural-environment format with a custom place.
	Environment string `json:"environment,omitempty"`
}

// attempt is one fully resolved generation. It holds copies of everything it
// needs so nothing is read back from the session while the backend runs.
type attempt struct {
	imageID        string
	source         Source
	format         creative.Format
	instruction    string
	description    string
	sloganStyle    creative.SloganStyle
	slogan         string
	generateSlogan bool
	adCopy         *AdCopy
}

func (a attempt) params() GenerationParams {
	p := GenerationParams{
		Format:      a.format,
		SloganStyle: a.sloganStyle,
		Slogan:      a.slogan,
		Description: a.description,
		ImageID:     a.imageID,
		Instruction: a.instruction,
	}
	if a.adCopy != nil {
		c := *a.adCopy
		p.AdCopy = &c
	}
	return p
}

// planLocked resolves the current selections into one attempt per format.
func (s *Session) planLocked(req GenerateRequest) ([]attempt, error) {
	img := s.selectedLocked()
	if img == nil {
		return nil, validationError("Please upload an image first.")
	}
	if img.Analyzing {
		return nil, validationError("Please wait for image analysis to complete.")
	}

	formats, err := resolveFormats(s.catalog, req.FormatID, s.formats)
	if err != nil {
		return nil, err
	}

	description, err := resolveDescription(s.input, img)
	if err != nil {
		return nil, err
	}

	plans := make([]attempt, 0, len(formats))
	for _, f := range formats {
		plans = append(plans, attempt{
			imageID:        img.ID,
			source:         img.source(),
			format:         f,
			instruction:    resolveInstruction(f, req.Environment, img.Analysis),
			description:    description,
			sloganStyle:    s.sloganStyle,
			generateSlogan: s.sloganStyle != creative.SloganNone,
		})
	}
	return plans, nil
}

func resolveFormats(catalog *creative.Catalog, override string, selected []string) ([]creative.Format, error) {
	if override = strings.TrimSpace(override); override != "" {
		f, ok := catalog.Lookup(override)
		if !ok {
			f, ok = catalog.ByName(override)
		}
		if !ok {
			return nil, validationError("Unknown format: " + override)
		}
		return []creative.Format{f}, nil
	}

	var out []creative.Format
	for _, id := range selected {
		if f, ok := catalog.Lookup(id); ok {
			out = append(out, f)
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	f, ok := catalog.Default()
	if !ok {
		return nil, &Error{Kind: KindConfig, Message: creative.DefaultFormatName + " format not available."}
	}
	return []creative.Format{f}, nil
}

func resolveDescription(input ProductInput, img *Image) (string, error) {
	if d := strings.TrimSpace(input.Description); d != "" {
		return d, nil
	}
	if d := strings.TrimSpace(img.Description); d != "" {
		return d, nil
	}
	return "", validationError("Please add a product description or generate one from the image first.")
}

func resolveInstruction(f creative.Format, environment string, analysis *Analysis) string {
	if !f.IsNaturalEnvironment() {
		return f.Prompt
	}
	if env := strings.TrimSpace(environment); env != "" {
		return creative.PlacementInstruction(env)
	}
	if analysis != nil {
		for _, env := range analysis.NaturalEnvironments {
			if env = strings.TrimSpace(env); env != "" {
				return creative.PlacementInstruction(env)
			}
		}
	}
	return f.Prompt
}
