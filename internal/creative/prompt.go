package creative

import (
	"fmt"
	"strings"
)

const DescribePrompt = "Concisely describe the product in this image in 1-2 sentences. Your description will be used as context for an AI image generator. Focus on what the object is, its main features, and its color. Only output the description text."

var designRules = []string{
	"Keep the layout clean with one clear focal point.",
	"Use at most two typefaces; text must be legible at thumbnail size.",
	"Respect safe margins; never place text over the product's label or logo.",
	"Color palette must complement the product, not compete with it.",
	"No watermarks, no stock-photo artifacts, no invented brand names.",
}

var squareOutput = []string{
	"Output must be EXACTLY SQUARE (1:1 aspect ratio) - no exceptions.",
	"If the input image is rectangular, crop or compose to a square format.",
	"Final dimensions should be equal width and height.",
}

// PlacementInstruction completes the natural-environment format with a physical setting.
func PlacementInstruction(environment string) string {
	return fmt.Sprintf("Place this product in %s. The product should be prominently displayed and maintain its original appearance. Create a professional, photorealistic composition that showcases the product effectively.", strings.TrimSpace(environment))
}

// RepositionInstruction turns a normalized click position into an edit instruction.
// (0,0) is the top-left corner and (1,1) the bottom-right corner.
func RepositionInstruction(x, y float64) string {
	return fmt.Sprintf("Keeping everything else the same, move the main text or slogan to be centered around the click coordinates (%.2f, %.2f), where (0,0) is the top-left corner and (1,1) is the bottom-right corner of the image. The product placement should not change.", x, y)
}

// MockupPrompt is the full text sent with the product photo when compositing an ad.
func MockupPrompt(instruction, slogan, description string) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("IMAGE USAGE REQUIREMENTS:\n")
	for i, line := range []string{
		"Use the uploaded image exactly as provided in your output.",
		"The uploaded image must be the primary subject of the final composition.",
		"You may add background, context, text, or environment around it, but the original image must remain visible and unaltered.",
		"Maintain all original visual elements from the uploaded image.",
		"Think of this as placing the uploaded image into a scene or mockup.",
	} {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, line))
	}
	if description = strings.TrimSpace(description); description != "" {
		b.WriteString(fmt.Sprintf("Context: %q\n", description))
	}
	b.WriteString("\n")

	b.WriteString("Your creative task: " + strings.TrimSpace(instruction) + "\n\n")

	writeSection(&b, "DESIGN RULES", designRules)

	if slogan = strings.TrimSpace(slogan); slogan != "" {
		b.WriteString(fmt.Sprintf("SLOGAN:\nArtfully and realistically integrate the following slogan into the scene: %q. ", slogan))
		b.WriteString("The text should be seamlessly integrated, considering the image's composition, lighting, and style. ")
		b.WriteString("Ensure the font, color, and placement are aesthetically pleasing and look like a professional advertisement.\n\n")
	}

	b.WriteString("IMPORTANT: Create a professional, high-quality mockup suitable for commercial use. Focus on clean, tasteful promotional material with excellent composition and lighting.\n\n")
	writeSection(&b, "ASPECT RATIO", squareOutput)

	b.WriteString("FINAL REQUIREMENTS:\n")
	b.WriteString("- The uploaded image must be clearly visible in the final output\n")
	b.WriteString("- Only output the final modified image\n")

	return strings.TrimSpace(b.String())
}

func EditPrompt(instruction string) string {
	instruction = strings.TrimRight(strings.TrimSpace(instruction), ".")
	return instruction + ". CRITICAL: The final output image must be EXACTLY SQUARE (1:1 aspect ratio). If the current image is not square, crop or recompose it to be perfectly square."
}

func SloganPrompt(style SloganStyle) string {
	base := "Generate a short, catchy tagline for this product."
	if s, ok := sloganStyles[style]; ok {
		base = s.Prompt
	}
	return base + " The output should be only the slogan text itself, without any quotation marks or extra explanations."
}

func AdCopyPrompt(format Format, description string) string {
	var b strings.Builder
	b.WriteString("You are an expert direct response copywriter and AI art director. Your task is to create a complete Facebook ad based on a user's product and a selected ad format.\n\n")
	b.WriteString(fmt.Sprintf("Product Description: %q\n\n", strings.TrimSpace(description)))
	b.WriteString(fmt.Sprintf("Ad Format & Style: %q\n\n", format.Name+" - "+format.Prompt))
	b.WriteString("Based on the above, generate the following components for a compelling Facebook ad:\n")
	b.WriteString("1. headline: A short, punchy headline (max 10 words) that grabs attention and summarizes the core message.\n")
	b.WriteString("2. bodyText: A persuasive body copy (2-4 sentences) that follows the principles of the selected ad format and leads to a call to action.\n")
	b.WriteString("3. imagePrompt: A detailed prompt for an AI image generator describing a visually arresting, square 1:1, professional ad creative that complements the headline and body text.\n\n")
	b.WriteString("Your output MUST be a valid JSON object.")
	return b.String()
}

func AnalysisPrompt() string {
	var b strings.Builder
	b.WriteString("Analyze this uploaded image carefully and provide smart marketing insights.\n\n")

	writeSection(&b, "FIRST, describe EXACTLY what you see in the image", []string{
		"Visual style (digital art, photography, 3D render, illustration, logo, UI/UX design)",
		"Artistic elements (colors, composition, style, technique)",
		"Subject matter (what is depicted or represented)",
		"Any text or branding visible",
	})
	writeSection(&b, "INDUSTRY DETECTION RULES", []string{
		"Digital art, illustrations, or creative designs -> \"entertainment\"",
		"Logo or brand identity -> the brand's actual industry",
		"UI/UX mockups or app screenshots -> \"saas\" or \"technology\"",
		"Physical products -> the matching product category",
		"NEVER default to \"technology\" unless it is actual tech hardware or software UI",
	})
	writeSection(&b, "naturalEnvironments must be SPECIFIC PHYSICAL LOCATIONS", []string{
		"apps/software: \"modern office desk\", \"coffee shop workspace\", \"home office\"",
		"physical products: \"kitchen counter\", \"living room table\", \"outdoor patio\"",
		"fashion items: \"urban street corner\", \"rooftop terrace\", \"city park\"",
		"art/creative: \"art studio easel\", \"gallery wall\", \"designer's desk\"",
	})

	b.WriteString("Return a valid JSON object with this structure:\n")
	b.WriteString(`{
  "suggestedTitle": "accurate product title",
  "detectedIndustry": "one of: ` + strings.Join(Industries(), ", ") + `",
  "recommendedAudiences": ["up to 4 audience tags"],
  "naturalEnvironments": ["exactly 6 specific physical locations"],
  "userStory": "a factual description of the visual content",
  "confidence": 85
}`)
	return b.String()
}

func Industries() []string {
	return []string{
		"saas", "ecommerce", "fashion", "food_beverage", "fitness_wellness", "technology",
		"b2b_services", "automotive", "real_estate", "education", "healthcare", "finance",
		"entertainment", "travel", "home_garden",
	}
}

// CleanSlogan strips the quotes and emphasis markers models like to wrap slogans in.
func CleanSlogan(text string) string {
	return strings.Trim(text, "\"*“” \t\r\n")
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")
}
