package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ad-studio/internal/creative"
	"ad-studio/internal/imageconv"
	"ad-studio/internal/studio"
)

type generateOptions struct {
	formats     []string
	slogan      string
	environment string
	description string
	edits       []string
	output      string
	outFormat   string
}

func newGenerateCmd(open opener) *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate IMAGE",
		Short: "Render ad creatives for a product photo",
		Long: `Uploads IMAGE, waits for the product analysis and renders one creative per
selected format. Edits run in order against the last creative.`,
		Example: `  # Default natural-environment mockup
  adstudio generate shoe.jpg

  # Two formats with a hook slogan, written as webp
  adstudio generate shoe.jpg -f natural_environment -f facebook_storytelling --slogan hook -o out/shoe.webp

  # Custom place, then an edit
  adstudio generate shoe.jpg --env "a rainy Tokyo street" --edit "make it night time"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, open, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", nil, "Format id, repeatable (default: natural environment)")
	cmd.Flags().StringVar(&opts.slogan, "slogan", "", "Slogan style: hook, tagline, meme, joke, quote, fun_fact")
	cmd.Flags().StringVar(&opts.environment, "env", "", "Custom environment for the natural-environment format")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Product description (default: from the analysis)")
	cmd.Flags().StringArrayVar(&opts.edits, "edit", nil, "Edit instruction applied to the last creative, repeatable")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "ad.png", "Output path; several creatives get a -N suffix")
	cmd.Flags().StringVar(&opts.outFormat, "out-format", "", "png, jpg or webp (default: from the output extension)")

	return cmd
}

func runGenerate(cmd *cobra.Command, open opener, path string, opts generateOptions) error {
	style, err := creative.ParseSloganStyle(opts.slogan)
	if err != nil {
		return err
	}

	sess, release, err := uploadFile(cmd, open, path)
	if err != nil {
		return err
	}
	defer release()

	if d := strings.TrimSpace(opts.description); d != "" {
		in := sess.Snapshot().Input
		in.Description = d
		sess.UpdateInput(in)
	}
	if err := sess.SetFormats(opts.formats...); err != nil {
		return err
	}
	if err := sess.SetSloganStyle(style); err != nil {
		return err
	}

	ctx := cmd.Context()
	started := time.Now()
	genErr := sess.Generate(ctx, studio.GenerateRequest{Environment: opts.environment})

	results := producedSince(sess.Snapshot().Gallery, started)
	if len(results) == 0 {
		if genErr != nil {
			return genErr
		}
		return fmt.Errorf("no creative was produced")
	}
	if genErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", genErr)
	}

	for _, instruction := range opts.edits {
		if err := sess.Edit(ctx, instruction); err != nil {
			return err
		}
	}
	if len(opts.edits) > 0 {
		results[len(results)-1] = *sess.Current()
	}

	format := outputFormat(opts.output, opts.outFormat)
	for i, c := range results {
		out := outputPath(opts.output, i, len(results), format)
		if err := writeCreative(out, c.Image, format); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		if text := captionOf(c); text != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", strings.ReplaceAll(text, "\n", "\n  "))
		}
	}
	return nil
}

// producedSince returns the gallery entries created after started, oldest first.
func producedSince(gallery []studio.Content, started time.Time) []studio.Content {
	var out []studio.Content
	for _, c := range gallery {
		if c.CreatedAt.Before(started) {
			break
		}
		out = append([]studio.Content{c}, out...)
	}
	return out
}

func outputFormat(path, explicit string) string {
	if f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(explicit), ".")); f != "" {
		return f
	}
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "jpg", "jpeg", "webp", "png":
		return ext
	default:
		return "png"
	}
}

// outputPath numbers the files when there is more than one creative and makes
// the extension match format.
func outputPath(path string, i, n int, format string) string {
	if strings.TrimSpace(path) == "" {
		path = "ad"
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if n > 1 {
		base = fmt.Sprintf("%s-%d", base, i+1)
	}
	return base + "." + format
}

func writeCreative(path, dataURL, format string) error {
	_, data, err := imageconv.DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	data, err = imageconv.Convert(data, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func captionOf(c studio.Content) string {
	if c.IsFacebookAd() {
		return strings.TrimSpace(c.Headline + "\n" + c.BodyText)
	}
	return c.Slogan
}
