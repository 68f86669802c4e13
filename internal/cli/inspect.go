package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type analysisReport struct {
	Title        string   `yaml:"title"`
	Industry     string   `yaml:"industry,omitempty"`
	Audiences    []string `yaml:"audiences,omitempty"`
	Environments []string `yaml:"environments,omitempty"`
	Story        string   `yaml:"story,omitempty"`
	Confidence   int      `yaml:"confidence"`
	Description  string   `yaml:"description,omitempty"`
}

func newAnalyzeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze IMAGE",
		Short: "Print the product analysis of a photo as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, release, err := uploadFile(cmd, open, args[0])
			if err != nil {
				return err
			}
			defer release()

			img, ok := sess.SelectedImage()
			if !ok || img.Analysis == nil {
				return errors.New("product analysis failed; run with -v for details")
			}

			a := img.Analysis
			out, err := yaml.Marshal(analysisReport{
				Title:        a.Title,
				Industry:     a.Industry,
				Audiences:    a.Audiences,
				Environments: a.NaturalEnvironments,
				Story:        a.Narrative,
				Confidence:   a.Confidence,
				Description:  img.Description,
			})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newDescribeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "describe IMAGE",
		Short: "Describe the product in a photo in one or two sentences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, release, err := uploadFile(cmd, open, args[0])
			if err != nil {
				return err
			}
			defer release()

			text, err := sess.Describe(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
