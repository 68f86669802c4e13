// Package cli is the adstudio command line: one-shot generation, analysis
// and catalog listing without the web or Telegram front-ends.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ad-studio/internal/app"
	"ad-studio/internal/config"
	"ad-studio/internal/ids"
	"ad-studio/internal/studio"
)

// opener returns a fresh studio session and the func that releases it.
type opener func(ctx context.Context, logger *slog.Logger) (*studio.Session, func(), error)

func NewRootCmd() *cobra.Command {
	return newRootCmd(openSession)
}

func newRootCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adstudio",
		Short: "Turn product photos into ad creatives with Gemini",
		Long: `adstudio analyzes a product photo, writes slogans or ad copy and renders
finished ad images in the formats of the catalog.

Settings come from the environment (GEMINI_API_KEY, FORMATS_FILE, ...) or a .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log model calls to stderr")

	cmd.AddCommand(newGenerateCmd(open))
	cmd.AddCommand(newAnalyzeCmd(open))
	cmd.AddCommand(newDescribeCmd(open))
	cmd.AddCommand(newCatalogCmd())

	return cmd
}

func openSession(ctx context.Context, logger *slog.Logger) (*studio.Session, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.NewSession(ids.New()), func() { _ = a.Close() }, nil
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// uploadFile opens a session, uploads path into it and waits for the analysis.
func uploadFile(cmd *cobra.Command, open opener, path string) (*studio.Session, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read image: %w", err)
	}

	sess, release, err := open(cmd.Context(), commandLogger(cmd))
	if err != nil {
		return nil, nil, err
	}

	if _, err := sess.Upload(cmd.Context(), filepath.Base(path), data); err != nil {
		release()
		return nil, nil, err
	}
	sess.Wait()
	return sess, release, nil
}
