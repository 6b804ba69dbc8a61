package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/assetaudit/internal/catalog"
)

// CatalogRow is one entry of catalog show.
type CatalogRow struct {
	Code string `json:"code"`
	catalog.Entry
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the asset catalog",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "List the catalog entries scans are classified against",
		Long: `List the catalog entries scans are classified against.

The catalog is the built-in demonstration set unless --catalog or the
config names a YAML or CUE file. Loading a file validates it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			codes := a.catalog.Codes()
			rows := make([]CatalogRow, 0, len(codes))
			for _, code := range codes {
				e, _ := a.catalog.Lookup(code)
				rows = append(rows, CatalogRow{Code: code, Entry: e})
			}
			if rootOpts.Format == "json" {
				return formatter.Success(rows)
			}

			w := cmd.OutOrStdout()
			for _, r := range rows {
				fmt.Fprintf(w, "%s  %s (%s) at %s", r.Code, r.Name, r.Type, r.Location)
				if r.Criticality != "" {
					fmt.Fprintf(w, " [%s]", r.Criticality)
				}
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%d asset(s)\n", len(rows))
			return nil
		},
	}

	cmd.AddCommand(show)
	return cmd
}
