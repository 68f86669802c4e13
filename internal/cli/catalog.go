package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ad-studio/internal/creative"
)

func newCatalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List formats, slogan styles and quick adjustments",
		Example: `  adstudio catalog
  adstudio catalog --formats-file formats.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = os.Getenv("FORMATS_FILE")
			}
			catalog, err := creative.LoadCatalog(file)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tNAME\tKIND")
			for _, f := range catalog.Formats() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, f.Kind)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "SLOGAN STYLE\tNAME\t")
			for _, s := range creative.SloganStyles() {
				fmt.Fprintf(w, "%s\t%s\t\n", s.Key, s.Name)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "ADJUSTMENT\tNAME\t")
			for _, a := range creative.Adjustments() {
				fmt.Fprintf(w, "%s\t%s\t\n", a.ID, a.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&file, "formats-file", "", "YAML catalog override (default: $FORMATS_FILE)")

	return cmd
}
